package server

import (
	"time"

	"earthhome/internal/middleware"
	"earthhome/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SignUpRequest is the body of POST /api/auth/sign-up.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the body of POST /api/auth/sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned after sign-up and sign-in.
type AuthResponse struct {
	Success bool            `json:"success"`
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
	Token   string          `json:"token"`
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SignUp handles POST /api/auth/sign-up
// @Summary Register
// @Description Create an email/password account and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Sign-up request"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/sign-up [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.SignUp(c.UserContext(), req.Name, req.Email, req.Password, clientInfo(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	s.setSessionCookie(c, res.Token, res.Session.ExpiresAt)
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Success: true,
		User:    res.User,
		Session: res.Session,
		Token:   res.Token,
	})
}

// SignIn handles POST /api/auth/sign-in
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/sign-in [post]
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.authService.SignIn(c.UserContext(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	s.setSessionCookie(c, res.Token, res.Session.ExpiresAt)
	return c.JSON(AuthResponse{
		Success: true,
		User:    res.User,
		Session: res.Session,
		Token:   res.Token,
	})
}

// SignOut handles POST /api/auth/sign-out
// @Summary Sign out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,message=string}
// @Router /auth/sign-out [post]
func (s *Server) SignOut(c *fiber.Ctx) error {
	identity := currentIdentity(c)
	if identity == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	if err := s.authService.SignOut(c.UserContext(), identity.Claims); err != nil {
		return respondServiceError(c, err)
	}

	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Signed out successfully",
	})
}

// GetSession handles GET /api/auth/get-session
// @Summary Current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool,user=models.User,session=models.Session}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/get-session [get]
func (s *Server) GetSession(c *fiber.Ctx) error {
	identity := currentIdentity(c)
	if identity == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    identity.User,
		"session": identity.Session,
	})
}

// VerifyEmail handles GET /api/auth/verify-email?token=...
// @Summary Verify email address
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/verify-email [get]
func (s *Server) VerifyEmail(c *fiber.Ctx) error {
	user, err := s.authService.VerifyEmail(c.UserContext(), c.Query("token"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified",
		"user":    user,
	})
}
