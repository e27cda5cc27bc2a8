package server

import (
	"strconv"
	"strings"

	"earthhome/internal/models"
	"earthhome/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// parsePagination extracts page and limit query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}
	if page > models.MaxPage(limit) {
		page = models.MaxPage(limit)
	}
	return Pagination{Page: page, Limit: limit}
}

// mapServiceError converts an AppError code into the HTTP status it is reported with.
func mapServiceError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError logs internal failures and writes the mapped error response.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := mapServiceError(err)
	if status == fiber.StatusInternalServerError {
		logger(c).Error("request failed", "path", c.Path(), "error", err)
		if models.ErrorCode(err) == "" {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

func currentIdentity(c *fiber.Ctx) *service.Identity {
	identity, _ := c.Locals("identity").(*service.Identity)
	return identity
}

func clientInfo(c *fiber.Ctx) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// parsePropertyQuery reads listing filters, sort and page window from the query string.
// Malformed numbers are rejected rather than ignored.
func parsePropertyQuery(c *fiber.Ctx) (models.PropertyQuery, error) {
	page := parsePagination(c, models.DefaultPageLimit)
	q := models.PropertyQuery{
		Filters: models.PropertyFilters{
			Search:       strings.TrimSpace(c.Query("search")),
			PropertyType: models.PropertyType(c.Query("propertyType")),
			ListingType:  models.ListingType(c.Query("listingType")),
			Status:       models.PropertyStatus(c.Query("status")),
			City:         strings.TrimSpace(c.Query("city")),
			AgentID:      c.Query("agentId"),
			OwnerID:      c.Query("ownerId"),
		},
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page.Page,
		Limit:     page.Limit,
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"minPrice", &q.Filters.MinPrice},
		{"maxPrice", &q.Filters.MaxPrice},
		{"beds", &q.Filters.Beds},
		{"baths", &q.Filters.Baths},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(c.Query(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, models.NewValidationError("Invalid " + f.name)
		}
		*f.dst = &n
	}

	if raw := strings.TrimSpace(c.Query("isFeatured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return q, models.NewValidationError("Invalid isFeatured")
		}
		q.Filters.IsFeatured = &featured
	}
	return q, nil
}
