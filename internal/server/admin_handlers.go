package server

import (
	"earthhome/internal/models"
	"earthhome/internal/service"
	"earthhome/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SetRoleRequest is the body of PUT /api/admin/users/:id/role.
type SetRoleRequest struct {
	Role string `json:"role"`
}

// ListUsers handles GET /api/admin/users
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or email substring"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} object{success=bool,users=[]models.User,pagination=models.Pagination}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, models.DefaultPageLimit)
	res, err := s.adminService.ListUsers(c.UserContext(), c.Query("search"), page.Page, page.Limit)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"users":      res.Users,
		"pagination": res.Pagination,
	})
}

// SetUserRole handles PUT /api/admin/users/:id/role
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body SetRoleRequest true "Role"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (s *Server) SetUserRole(c *fiber.Ctx) error {
	var req SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.adminService.SetRole(c.UserContext(), currentUser(c), c.Params("id"), req.Role)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// BanUser handles POST /api/admin/users/:id/ban
// @Summary Ban a user
// @Description Bans the user and revokes every session they hold
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Param request body service.BanInput false "Reason and optional expiry"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/ban [post]
func (s *Server) BanUser(c *fiber.Ctx) error {
	var in service.BanInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}
	if err := validation.Struct(in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	user, err := s.adminService.BanUser(c.UserContext(), currentUser(c), c.Params("id"), in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// UnbanUser handles POST /api/admin/users/:id/unban
// @Summary Lift a ban
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User id"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/unban [post]
func (s *Server) UnbanUser(c *fiber.Ctx) error {
	user, err := s.adminService.UnbanUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}
