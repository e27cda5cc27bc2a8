package server

import (
	"context"
	"errors"
	"log/slog"

	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/service"

	"github.com/gofiber/fiber/v2"
)

func logger(c *fiber.Ctx) *slog.Logger {
	return middleware.Logger.With("request_path", c.Path())
}

// authenticate resolves the request token and stores the identity in locals.
func (s *Server) authenticate(c *fiber.Ctx) (*service.Identity, error) {
	token, err := middleware.ExtractToken(c)
	if err != nil {
		if errors.Is(err, middleware.ErrMissingToken) {
			return nil, models.NewUnauthorizedError("Authentication required")
		}
		return nil, models.NewUnauthorizedError("Invalid authorization header")
	}

	identity, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return nil, err
	}

	c.Locals("userID", identity.User.ID)
	c.Locals("user", identity.User)
	c.Locals("identity", identity)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, identity.User.ID))
	return identity, nil
}

// AuthRequired rejects requests without a live session.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			return models.RespondWithError(c, mapServiceError(err), err)
		}
		return c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and lets
// anonymous or stale-token requests through as anonymous.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := middleware.ExtractToken(c); err != nil {
			return c.Next()
		}
		if _, err := s.authenticate(c); err != nil {
			if mapServiceError(err) == fiber.StatusInternalServerError {
				logger(c).Warn("optional authentication failed", "error", err)
			}
		}
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the user is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := currentUser(c)
		if user == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		if !user.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
