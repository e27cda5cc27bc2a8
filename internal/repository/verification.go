package repository

import (
	"context"
	"errors"
	"time"

	"earthhome/internal/models"

	"gorm.io/gorm"
)

// VerificationRepository stores single-use verification tokens.
type VerificationRepository interface {
	Create(ctx context.Context, v *models.Verification) error
	Consume(ctx context.Context, value string, now time.Time) (*models.Verification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository returns a gorm-backed VerificationRepository.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, v *models.Verification) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Consume deletes and returns the unexpired verification holding value.
func (r *verificationRepository) Consume(ctx context.Context, value string, now time.Time) (*models.Verification, error) {
	var v models.Verification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("value = ? AND expires_at > ?", value, now).First(&v).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", v.ID).Delete(&models.Verification{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewValidationError("Invalid or expired verification token")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &v, nil
}
