package repository

import (
	"context"

	"earthhome/internal/models"

	"gorm.io/gorm"
)

// AccountRepository reads provider accounts linked to users.
type AccountRepository interface {
	GetCredential(ctx context.Context, userID string) (*models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a gorm-backed AccountRepository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// GetCredential returns the email/password account for a user.
func (r *accountRepository) GetCredential(ctx context.Context, userID string) (*models.Account, error) {
	var a models.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider_id = ?", userID, models.ProviderCredential).
		First(&a).Error
	if err != nil {
		return nil, notFoundOr(err, "Account not found")
	}
	return &a, nil
}
