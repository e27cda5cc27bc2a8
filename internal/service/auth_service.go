package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"earthhome/internal/cache"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/observability"
	"earthhome/internal/repository"
	"earthhome/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL        = 7 * 24 * time.Hour
	DefaultVerificationTTL = 24 * time.Hour
)

var errInvalidCredentials = models.NewUnauthorizedError("Invalid email or password")

// AuthConfig configures token issuance. Issuer doubles as the audience.
type AuthConfig struct {
	Secret          string
	Issuer          string
	TokenTTL        time.Duration
	VerificationTTL time.Duration
}

// ClientInfo identifies the device a session is opened from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	User    *models.User    `json:"user"`
	Session *models.Session `json:"session"`
	Token   string          `json:"token"`
}

// Identity is an authenticated request principal.
type Identity struct {
	User    *models.User            `json:"user"`
	Session *models.Session         `json:"session"`
	Claims  *middleware.TokenClaims `json:"-"`
}

// sessionRecord is the cached form of an authenticated session.
type sessionRecord struct {
	Session models.Session `json:"session"`
	User    models.User    `json:"user"`
}

type AuthService struct {
	users         repository.UserRepository
	accounts      repository.AccountRepository
	sessions      repository.SessionRepository
	verifications repository.VerificationRepository
	verifier      *middleware.TokenVerifier
	cfg           AuthConfig
	now           func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	verifications repository.VerificationRepository,
	cfg AuthConfig,
) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	return &AuthService{
		users:         users,
		accounts:      accounts,
		sessions:      sessions,
		verifications: verifications,
		verifier:      middleware.NewTokenVerifier(cfg.Secret, cfg.Issuer, cfg.Issuer),
		cfg:           cfg,
		now:           time.Now,
	}
}

// SignUp registers an email/password user and signs them in.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string, client ClientInfo) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	hashed := string(hash)

	user := &models.User{ID: models.NewID(), Name: name, Email: email, Role: models.RoleUser}
	account := &models.Account{
		AccountID:  user.ID,
		ProviderID: models.ProviderCredential,
		Password:   &hashed,
	}
	if err := s.users.CreateWithAccount(ctx, user, account); err != nil {
		observability.AuthEvents.WithLabelValues("sign_up", "failure").Inc()
		return nil, err
	}

	if err := s.issueVerification(ctx, user.Email); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to issue email verification", "user_id", user.ID, "error", err)
	}

	result, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("sign_up", "success").Inc()
	return result, nil
}

// SignIn checks email/password credentials and opens a new session.
func (s *AuthService) SignIn(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			observability.AuthEvents.WithLabelValues("sign_in", "failure").Inc()
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	account, err := s.accounts.GetCredential(ctx, user.ID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			observability.AuthEvents.WithLabelValues("sign_in", "failure").Inc()
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if account.Password == nil || bcrypt.CompareHashAndPassword([]byte(*account.Password), []byte(password)) != nil {
		observability.AuthEvents.WithLabelValues("sign_in", "failure").Inc()
		return nil, errInvalidCredentials
	}

	if user.IsBanned(s.now()) {
		observability.AuthEvents.WithLabelValues("sign_in", "banned").Inc()
		return nil, bannedError(user)
	}

	result, err := s.openSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("sign_in", "success").Inc()
	return result, nil
}

func bannedError(user *models.User) error {
	msg := "Your account has been banned"
	if user.BanReason != nil && *user.BanReason != "" {
		msg += ": " + *user.BanReason
	}
	return models.NewForbiddenError(msg)
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, client ClientInfo) (*AuthResult, error) {
	now := s.now()
	tokenID := models.NewID()
	expiresAt := now.Add(s.cfg.TokenTTL)

	token, err := s.signToken(user.ID, tokenID, now, expiresAt)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	session := &models.Session{
		Token:     tokenID,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		IPAddress: optionalString(client.IPAddress),
		UserAgent: optionalString(client.UserAgent),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session, Token: token}, nil
}

func (s *AuthService) signToken(userID, tokenID string, now, expiresAt time.Time) (string, error) {
	if s.cfg.Secret == "" {
		return "", errors.New("auth secret not configured")
	}
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": s.cfg.Issuer,
		"aud": s.cfg.Issuer,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": tokenID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

// Authenticate resolves a bearer token to its user and live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	revoked, err := cache.IsBlacklisted(ctx, claims.TokenID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "blacklist lookup failed", "error", err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}

	var rec sessionRecord
	err = cache.Aside(ctx, "session", cache.SessionKey(claims.TokenID), &rec, cache.SessionTTL, func() error {
		session, err := s.sessions.GetByToken(ctx, claims.TokenID)
		if err != nil {
			return err
		}
		user, err := s.users.GetByID(ctx, session.UserID)
		if err != nil {
			return err
		}
		rec = sessionRecord{Session: *session, User: *user}
		return nil
	})
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Session not found")
		}
		return nil, err
	}

	now := s.now()
	if !rec.Session.Valid(now) || rec.Session.UserID != claims.UserID {
		return nil, models.NewUnauthorizedError("Session expired")
	}
	if rec.User.IsBanned(now) {
		return nil, bannedError(&rec.User)
	}

	rec.Session.Token = claims.TokenID
	return &Identity{User: &rec.User, Session: &rec.Session, Claims: claims}, nil
}

// SignOut ends the session and revokes its token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, claims *middleware.TokenClaims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authentication required")
	}
	if err := s.sessions.DeleteByToken(ctx, claims.TokenID); err != nil {
		return err
	}
	cache.InvalidateSession(ctx, claims.TokenID)
	if err := cache.Blacklist(ctx, claims.TokenID, claims.ExpiresAt.Sub(s.now())); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to blacklist token", "error", err)
	}
	observability.AuthEvents.WithLabelValues("sign_out", "success").Inc()
	return nil
}

// RevokeUserSessions deletes every session a user holds and blacklists their tokens.
func (s *AuthService) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	return revokeSessions(ctx, s.sessions, userID, s.cfg.TokenTTL)
}

func revokeSessions(ctx context.Context, sessions repository.SessionRepository, userID string, ttl time.Duration) (int64, error) {
	tokens, err := sessions.ListTokensByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n, err := sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, tokenID := range tokens {
		cache.InvalidateSession(ctx, tokenID)
		if err := cache.Blacklist(ctx, tokenID, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to blacklist token", "user_id", userID, "error", err)
		}
	}
	return n, nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, models.NewValidationError("Verification token is required")
	}
	v, err := s.verifications.Consume(ctx, token, s.now())
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, v.Identifier)
	if err != nil {
		return nil, err
	}
	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	return user, nil
}

func (s *AuthService) issueVerification(ctx context.Context, email string) error {
	value, err := randomToken(32)
	if err != nil {
		return err
	}
	v := &models.Verification{
		Identifier: email,
		Value:      value,
		ExpiresAt:  s.now().Add(s.cfg.VerificationTTL),
	}
	if err := s.verifications.Create(ctx, v); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.cfg.Issuer, url.QueryEscape(value))
	middleware.Logger.InfoContext(ctx, "email verification issued", "email", email, "verify_url", link, "expires_at", v.ExpiresAt)
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
