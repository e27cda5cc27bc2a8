package server

import (
	"earthhome/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ToggleFavorite handles POST /api/favorites/:id/toggle
// @Summary Toggle favorite
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property id"
// @Success 200 {object} object{success=bool,isFavorited=bool,message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /favorites/{id}/toggle [post]
func (s *Server) ToggleFavorite(c *fiber.Ctx) error {
	res, err := s.favoriteService.ToggleFavorite(c.UserContext(), currentUser(c), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":     true,
		"isFavorited": res.IsFavorited,
		"message":     res.Message,
	})
}

// GetFavorites handles GET /api/favorites
// @Summary Favorited listings
// @Description Most recently favorited first
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} PropertyListResponse
// @Router /favorites [get]
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	page := parsePagination(c, models.DefaultPageLimit)
	res, err := s.favoriteService.GetFavoriteProperties(c.UserContext(), currentUser(c), page.Page, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(PropertyListResponse{
		Success:    true,
		Properties: res.Properties,
		Pagination: res.Pagination,
	})
}
