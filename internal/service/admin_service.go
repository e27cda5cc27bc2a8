package service

import (
	"context"
	"strings"
	"time"

	"earthhome/internal/cache"
	"earthhome/internal/middleware"
	"earthhome/internal/models"
	"earthhome/internal/repository"
)

// UserPage is one page of users for the admin console.
type UserPage struct {
	Users      []models.User     `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

// BanInput carries an optional reason and expiry. A nil expiry bans indefinitely.
type BanInput struct {
	Reason  string     `json:"reason" validate:"max=500"`
	Expires *time.Time `json:"expiresAt"`
}

type AdminService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAdminService(users repository.UserRepository, sessions repository.SessionRepository, tokenTTL time.Duration) *AdminService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &AdminService{users: users, sessions: sessions, tokenTTL: tokenTTL, now: time.Now}
}

// ListUsers pages through users, optionally matching name or email.
func (s *AdminService) ListUsers(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	q := models.PropertyQuery{Page: page, Limit: limit}
	q.Normalize()
	users, total, err := s.users.List(ctx, strings.TrimSpace(search), q.Limit, q.Offset())
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Pagination: models.NewPagination(q.Page, q.Limit, total)}, nil
}

// SetRole grants or removes the admin role.
func (s *AdminService) SetRole(ctx context.Context, actor *models.User, userID, role string) (*models.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, models.NewValidationError("role must be one of: user, admin")
	}
	if actor != nil && actor.ID == userID && role != models.RoleAdmin {
		return nil, models.NewValidationError("You cannot remove your own admin role")
	}
	if err := s.users.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	s.dropCachedSessions(ctx, userID)
	middleware.Logger.InfoContext(ctx, "user role changed", "target_user_id", userID, "role", role)
	return s.users.GetByID(ctx, userID)
}

// BanUser bans a user and revokes all of their sessions.
func (s *AdminService) BanUser(ctx context.Context, actor *models.User, userID string, in BanInput) (*models.User, error) {
	if actor != nil && actor.ID == userID {
		return nil, models.NewValidationError("You cannot ban yourself")
	}
	if in.Expires != nil && !in.Expires.After(s.now()) {
		return nil, models.NewValidationError("Ban expiry must be in the future")
	}
	var reason *string
	if r := strings.TrimSpace(in.Reason); r != "" {
		reason = &r
	}
	if err := s.users.SetBan(ctx, userID, true, reason, in.Expires); err != nil {
		return nil, err
	}

	revoked, err := revokeSessions(ctx, s.sessions, userID, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user banned", "target_user_id", userID, "sessions_revoked", revoked)
	return s.users.GetByID(ctx, userID)
}

// UnbanUser lifts a ban.
func (s *AdminService) UnbanUser(ctx context.Context, userID string) (*models.User, error) {
	if err := s.users.SetBan(ctx, userID, false, nil, nil); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user unbanned", "target_user_id", userID)
	return s.users.GetByID(ctx, userID)
}

// dropCachedSessions forces the next request of each session to reload the user.
func (s *AdminService) dropCachedSessions(ctx context.Context, userID string) {
	tokens, err := s.sessions.ListTokensByUser(ctx, userID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to list sessions for cache invalidation", "user_id", userID, "error", err)
		return
	}
	for _, tokenID := range tokens {
		cache.InvalidateSession(ctx, tokenID)
	}
}
