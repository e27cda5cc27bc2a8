package repository

import (
	"context"
	"fmt"
	"time"

	"earthhome/internal/models"
	"earthhome/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateWithAccount(ctx context.Context, user *models.User, account *models.Account) error
	MarkEmailVerified(ctx context.Context, id string) error
	SetRole(ctx context.Context, id, role string) error
	SetBan(ctx context.Context, id string, banned bool, reason *string, expires *time.Time) error
	List(ctx context.Context, search string, limit, offset int) ([]models.User, int64, error)
}

type userRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	defer r.metrics.TrackQuery("select", "user")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.metrics.TrackQuery("select", "user")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

// CreateWithAccount inserts the user and its credential account atomically.
func (r *userRepository) CreateWithAccount(ctx context.Context, user *models.User, account *models.Account) error {
	defer r.metrics.TrackQuery("insert", "user")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		account.UserID = user.ID
		if account.AccountID == "" {
			account.AccountID = user.ID
		}
		return tx.Create(account).Error
	})
	if isUniqueViolation(err) {
		return models.NewConflictError("User with this email already exists")
	}
	if err != nil {
		return models.NewInternalError(fmt.Errorf("create user: %w", err))
	}
	return nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.updateColumns(ctx, id, map[string]any{"email_verified": true})
}

func (r *userRepository) SetRole(ctx context.Context, id, role string) error {
	return r.updateColumns(ctx, id, map[string]any{"role": role})
}

func (r *userRepository) SetBan(ctx context.Context, id string, banned bool, reason *string, expires *time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{
		"banned":      banned,
		"ban_reason":  reason,
		"ban_expires": expires,
	})
}

func (r *userRepository) updateColumns(ctx context.Context, id string, cols map[string]any) error {
	defer r.metrics.TrackQuery("update", "user")()

	cols["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User not found")
	}
	return nil
}

// List pages through users, optionally matching name or email case-insensitively.
func (r *userRepository) List(ctx context.Context, search string, limit, offset int) ([]models.User, int64, error) {
	defer r.metrics.TrackQuery("select", "user")()

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.User{})
		if search != "" {
			like := likePattern(search)
			q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := scoped().Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
