package server

import (
	"strings"

	"earthhome/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PropertyListResponse is one page of listings.
type PropertyListResponse struct {
	Success    bool                       `json:"success"`
	Properties []models.PropertyWithAgent `json:"properties"`
	Pagination models.Pagination          `json:"pagination"`
}

// PropertyResponse wraps a single listing.
type PropertyResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Property any    `json:"property"`
}

func parsePropertyInput(c *fiber.Ctx) (*models.PropertyInput, error) {
	var in models.PropertyInput
	if err := c.BodyParser(&in); err != nil {
		return nil, models.NewValidationError("Invalid request body")
	}
	return &in, nil
}

// GetProperties handles GET /api/properties
// @Summary Browse listings
// @Description Public listings with filters, sorting and pagination. Only active listings unless an admin filters by status.
// @Tags properties
// @Produce json
// @Param search query string false "Title, description or location substring"
// @Param propertyType query string false "Property type"
// @Param listingType query string false "sale or rent"
// @Param status query string false "Status (admins only)"
// @Param minPrice query int false "Minimum effective price"
// @Param maxPrice query int false "Maximum effective price"
// @Param beds query int false "Bedrooms"
// @Param baths query int false "Bathrooms"
// @Param city query string false "City substring"
// @Param agentId query string false "Agent id"
// @Param ownerId query string false "Owner id"
// @Param isFeatured query bool false "Featured only"
// @Param sortBy query string false "createdAt, updatedAt, price or title"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} PropertyListResponse
// @Router /properties [get]
func (s *Server) GetProperties(c *fiber.Ctx) error {
	q, err := parsePropertyQuery(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	page, err := s.propertyService.ListProperties(c.UserContext(), currentUser(c), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(PropertyListResponse{
		Success:    true,
		Properties: page.Properties,
		Pagination: page.Pagination,
	})
}

// GetMyProperties handles GET /api/dashboard/properties
// @Summary Managed listings
// @Description Listings where the caller is agent or owner. Admins see every listing.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PropertyListResponse
// @Router /dashboard/properties [get]
func (s *Server) GetMyProperties(c *fiber.Ctx) error {
	q, err := parsePropertyQuery(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	page, err := s.propertyService.ListManagedProperties(c.UserContext(), currentUser(c), q)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(PropertyListResponse{
		Success:    true,
		Properties: page.Properties,
		Pagination: page.Pagination,
	})
}

// GetProperty handles GET /api/properties/:identifier
// @Summary Listing detail
// @Description Looks a listing up by UUID or slug
// @Tags properties
// @Produce json
// @Param identifier path string true "Property id or slug"
// @Success 200 {object} PropertyResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /properties/{identifier} [get]
func (s *Server) GetProperty(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Params("identifier"))
	if identifier == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Property identifier is required"))
	}

	property, err := s.propertyService.GetProperty(c.UserContext(), currentUser(c), identifier)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(PropertyResponse{Success: true, Property: property})
}

// CreateProperty handles POST /api/properties
// @Summary Create listing
// @Tags properties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PropertyInput true "Listing"
// @Success 201 {object} PropertyResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /properties [post]
func (s *Server) CreateProperty(c *fiber.Ctx) error {
	in, err := parsePropertyInput(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	property, err := s.propertyService.CreateProperty(c.UserContext(), currentUser(c), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(PropertyResponse{
		Success:  true,
		Message:  "Property created successfully",
		Property: property,
	})
}

// UpdateProperty handles PUT /api/properties/:id
// @Summary Update listing
// @Description Partial update. Only the agent, the owner or an admin may update.
// @Tags properties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property id"
// @Param request body models.PropertyInput true "Changed fields"
// @Success 200 {object} PropertyResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /properties/{id} [put]
func (s *Server) UpdateProperty(c *fiber.Ctx) error {
	in, err := parsePropertyInput(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	property, err := s.propertyService.UpdateProperty(c.UserContext(), currentUser(c), c.Params("id"), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(PropertyResponse{
		Success:  true,
		Message:  "Property updated successfully",
		Property: property,
	})
}

// DeleteProperty handles DELETE /api/properties/:id
// @Summary Delete listing
// @Description Removes the listing, its favorites and its stored media
// @Tags properties
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property id"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /properties/{id} [delete]
func (s *Server) DeleteProperty(c *fiber.Ctx) error {
	if err := s.propertyService.DeleteProperty(c.UserContext(), currentUser(c), c.Params("id")); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Property and associated files deleted successfully",
	})
}

// GetMyStats handles GET /api/dashboard/stats
// @Summary Listing counts for the caller
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,stats=models.PropertyStats}
// @Router /dashboard/stats [get]
func (s *Server) GetMyStats(c *fiber.Ctx) error {
	stats, err := s.propertyService.GetPropertyStats(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// GetGlobalStats handles GET /api/admin/stats
// @Summary Listing counts across all agents
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,stats=models.PropertyStats}
// @Router /admin/stats [get]
func (s *Server) GetGlobalStats(c *fiber.Ctx) error {
	stats, err := s.propertyService.GetPropertyStats(c.UserContext(), "")
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}
