package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ListingType says whether a property is offered for sale or for rent.
type ListingType string

const (
	ListingTypeSale ListingType = "sale"
	ListingTypeRent ListingType = "rent"
)

// PropertyType classifies the building or land.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeCondo      PropertyType = "condo"
	PropertyTypeTownhouse  PropertyType = "townhouse"
	PropertyTypeDuplex     PropertyType = "duplex"
	PropertyTypeStudio     PropertyType = "studio"
	PropertyTypeVilla      PropertyType = "villa"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeIndustrial PropertyType = "industrial"
	PropertyTypeFarm       PropertyType = "farm"
)

// PropertyStatus is the lifecycle state of a listing.
type PropertyStatus string

const (
	PropertyStatusDraft     PropertyStatus = "draft"
	PropertyStatusActive    PropertyStatus = "active"
	PropertyStatusPending   PropertyStatus = "pending"
	PropertyStatusSold      PropertyStatus = "sold"
	PropertyStatusRented    PropertyStatus = "rented"
	PropertyStatusOffMarket PropertyStatus = "off_market"
)

type ParkingType string

const (
	ParkingGarage   ParkingType = "garage"
	ParkingCarport  ParkingType = "carport"
	ParkingStreet   ParkingType = "street"
	ParkingCovered  ParkingType = "covered"
	ParkingAssigned ParkingType = "assigned"
	ParkingNone     ParkingType = "none"
)

type HeatingType string

const (
	HeatingNone       HeatingType = "none"
	HeatingElectric   HeatingType = "electric"
	HeatingGas        HeatingType = "gas"
	HeatingOil        HeatingType = "oil"
	HeatingHeatPump   HeatingType = "heat_pump"
	HeatingSolar      HeatingType = "solar"
	HeatingGeothermal HeatingType = "geothermal"
)

type CoolingType string

const (
	CoolingNone        CoolingType = "none"
	CoolingCentral     CoolingType = "central"
	CoolingWallUnit    CoolingType = "wall_unit"
	CoolingEvaporative CoolingType = "evaporative"
	CoolingGeothermal  CoolingType = "geothermal"
)

type Zoning string

const (
	ZoningResidential  Zoning = "residential"
	ZoningCommercial   Zoning = "commercial"
	ZoningAgricultural Zoning = "agricultural"
	ZoningIndustrial   Zoning = "industrial"
	ZoningMixedUse     Zoning = "mixed_use"
	ZoningRecreational Zoning = "recreational"
	ZoningOther        Zoning = "other"
)

// Property is a listing with its location, building, pricing and media attributes.
type Property struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string         `gorm:"type:text;not null" json:"title"`
	Description  *string        `gorm:"type:text" json:"description"`
	Slug         string         `gorm:"type:text;uniqueIndex:property_slug_unique" json:"slug"`
	ListingType  ListingType    `gorm:"type:listing_type;not null;default:sale" json:"listingType"`
	PropertyType PropertyType   `gorm:"type:property_type;not null" json:"propertyType"`
	Status       PropertyStatus `gorm:"type:property_status;not null;default:active;index" json:"status"`

	Location      string   `gorm:"type:text;not null" json:"location"`
	StreetAddress *string  `gorm:"type:text" json:"streetAddress"`
	City          *string  `gorm:"type:text" json:"city"`
	State         *string  `gorm:"type:text" json:"state"`
	PostalCode    *string  `gorm:"type:text" json:"postalCode"`
	Country       *string  `gorm:"type:text" json:"country"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`

	Dimensions       *string      `gorm:"type:text" json:"dimensions"`
	BuildingSizeSqft *int         `json:"buildingSizeSqft"`
	LotSizeSqft      *int         `json:"lotSizeSqft"`
	LotSizeAcres     *float64     `gorm:"type:numeric(10,2)" json:"lotSizeAcres"`
	YearBuilt        *int         `json:"yearBuilt"`
	Floors           *int         `json:"floors"`
	Beds             *int         `json:"beds"`
	Baths            *int         `json:"baths"`
	ParkingSpaces    *int         `json:"parkingSpaces"`
	ParkingType      *ParkingType `gorm:"type:parking_type" json:"parkingType"`
	Heating          *HeatingType `gorm:"type:heating_type" json:"heating"`
	Cooling          *CoolingType `gorm:"type:cooling_type" json:"cooling"`
	Zoning           *Zoning      `gorm:"type:zoning" json:"zoning"`

	Currency        string     `gorm:"type:text;default:USD" json:"currency"`
	Price           *int       `json:"price"`
	SalePrice       *int       `json:"salePrice"`
	RentalPrice     *int       `json:"rentalPrice"`
	SecurityDeposit *int       `json:"securityDeposit"`
	HOAFee          *int       `gorm:"column:hoa_fee" json:"hoaFee"`
	AnnualTaxes     *int       `json:"annualTaxes"`
	AvailableFrom   *time.Time `json:"availableFrom"`

	ImageURL       *string                     `gorm:"type:text" json:"imageUrl"`
	Images         datatypes.JSONSlice[string] `json:"images"`
	VideoURL       *string                     `gorm:"type:text" json:"videoUrl"`
	VirtualTourURL *string                     `gorm:"type:text" json:"virtualTourUrl"`
	Amenities      datatypes.JSONSlice[string] `json:"amenities"`
	Features       datatypes.JSONSlice[string] `json:"features"`
	Utilities      datatypes.JSONMap           `json:"utilities"`

	AgentID   *string `gorm:"type:text;index" json:"agentId"`
	AgentUser *User   `gorm:"foreignKey:AgentID;constraint:OnDelete:SET NULL" json:"-"`
	OwnerID   *string `gorm:"type:text;index" json:"ownerId"`
	OwnerUser *User   `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`

	IsFeatured bool      `gorm:"not null;default:false" json:"isFeatured"`
	IsNew      bool      `gorm:"not null;default:false" json:"isNew"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for GORM.
func (Property) TableName() string {
	return "property"
}

// BeforeCreate assigns an id and fills the JSON collections so they never persist as null.
func (p *Property) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	if p.Images == nil {
		p.Images = datatypes.JSONSlice[string]{}
	}
	if p.Amenities == nil {
		p.Amenities = datatypes.JSONSlice[string]{}
	}
	if p.Features == nil {
		p.Features = datatypes.JSONSlice[string]{}
	}
	if p.Utilities == nil {
		p.Utilities = datatypes.JSONMap{}
	}
	return nil
}

// IsManagedBy reports whether userID is the listing's agent or owner.
func (p *Property) IsManagedBy(userID string) bool {
	if userID == "" {
		return false
	}
	return (p.AgentID != nil && *p.AgentID == userID) || (p.OwnerID != nil && *p.OwnerID == userID)
}

// AgentSummary is the public slice of a user shown next to a listing.
type AgentSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

// PropertyWithAgent is a listing enriched for a particular viewer.
type PropertyWithAgent struct {
	Property
	Agent       *AgentSummary `json:"agent"`
	IsFavorited bool          `json:"isFavorited"`
	FavoritedAt *time.Time    `json:"favoritedAt,omitempty"`
}

// PropertyStats counts listings by status.
type PropertyStats struct {
	TotalProperties    int64 `json:"totalProperties"`
	ActiveProperties   int64 `json:"activeProperties"`
	SoldProperties     int64 `json:"soldProperties"`
	RentedProperties   int64 `json:"rentedProperties"`
	DraftProperties    int64 `json:"draftProperties"`
	FeaturedProperties int64 `json:"featuredProperties"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		TotalCount:  total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// Summary returns the public agent fields of a user, or nil.
func (u *User) Summary() *AgentSummary {
	if u == nil {
		return nil
	}
	return &AgentSummary{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}
