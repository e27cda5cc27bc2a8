package models

import "math"

// Sort fields accepted by property listings.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByPrice     = "price"
	SortByTitle     = "title"
)

// Listing page bounds.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxOffset bounds the rows a page window may skip.
	MaxOffset = math.MaxInt32
)

// MaxPage is the last page whose offset stays within MaxOffset for limit.
func MaxPage(limit int) int {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return MaxOffset/limit + 1
}

// PropertyFilters narrows a property listing. Nil and empty fields do not filter.
type PropertyFilters struct {
	Search       string         `json:"search,omitempty"`
	PropertyType PropertyType   `json:"propertyType,omitempty"`
	ListingType  ListingType    `json:"listingType,omitempty"`
	Status       PropertyStatus `json:"status,omitempty"`
	MinPrice     *int           `json:"minPrice,omitempty"`
	MaxPrice     *int           `json:"maxPrice,omitempty"`
	Beds         *int           `json:"beds,omitempty"`
	Baths        *int           `json:"baths,omitempty"`
	City         string         `json:"city,omitempty"`
	AgentID      string         `json:"agentId,omitempty"`
	OwnerID      string         `json:"ownerId,omitempty"`
	IsFeatured   *bool          `json:"isFeatured,omitempty"`
	ManagedBy    string         `json:"managedBy,omitempty"`
}

// PropertyQuery is a complete listing request: filters, ordering and page window.
type PropertyQuery struct {
	Filters   PropertyFilters `json:"filters"`
	SortBy    string          `json:"sortBy"`
	SortOrder string          `json:"sortOrder"`
	Page      int             `json:"page"`
	Limit     int             `json:"limit"`
	// ViewerID decides isFavorited; it never narrows the result set.
	ViewerID string `json:"-"`
}

// Normalize clamps the page window and replaces unknown sort options with defaults.
func (q *PropertyQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Page > MaxPage(q.Limit) {
		q.Page = MaxPage(q.Limit)
	}
	switch q.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByPrice, SortByTitle:
	default:
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
}

// Offset is the number of rows skipped before the current page.
func (q *PropertyQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
