package repository

import (
	"context"
	"fmt"
	"time"

	"earthhome/internal/models"
	"earthhome/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteEntry is a favorited listing with the time it was saved.
type FavoriteEntry struct {
	Property    models.Property
	FavoritedAt time.Time
}

// FavoriteRepository defines persistence operations for favorites.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, propertyID string) (bool, error)
	FavoritedIDs(ctx context.Context, userID string, propertyIDs []string) (map[string]bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]FavoriteEntry, int64, error)
}

type favoriteRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewFavoriteRepository returns a gorm-backed FavoriteRepository.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db, metrics: observability.NewDatabaseMetrics()}
}

// Toggle removes the favorite when it exists and adds it otherwise, returning
// whether the property is favorited afterwards.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, propertyID string) (bool, error) {
	defer r.metrics.TrackQuery("toggle", "favorite")()

	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND property_id = ?", userID, propertyID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			added = false
			return nil
		}
		fav := models.Favorite{UserID: userID, PropertyID: propertyID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&fav).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, models.NewInternalError(fmt.Errorf("toggle favorite: %w", err))
	}
	return added, nil
}

// FavoritedIDs reports which of propertyIDs the user has favorited.
func (r *favoriteRepository) FavoritedIDs(ctx context.Context, userID string, propertyIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(propertyIDs))
	if userID == "" || len(propertyIDs) == 0 {
		return out, nil
	}
	defer r.metrics.TrackQuery("select", "favorite")()

	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND property_id IN ?", userID, propertyIDs).
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

type favoriteRow struct {
	PropertyID  string
	FavoritedAt time.Time
}

// ListByUser pages through a user's favorites, newest first.
func (r *favoriteRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]FavoriteEntry, int64, error) {
	defer r.metrics.TrackQuery("select", "favorite")()

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if total == 0 {
		return []FavoriteEntry{}, 0, nil
	}

	var rows []favoriteRow
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Select("property_id, created_at AS favorited_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("property_id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if len(rows) == 0 {
		return []FavoriteEntry{}, total, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.PropertyID
	}
	var props []models.Property
	if err := r.db.WithContext(ctx).Preload("AgentUser").Where("id IN ?", ids).Find(&props).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	byID := make(map[string]models.Property, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}

	entries := make([]FavoriteEntry, 0, len(rows))
	for _, row := range rows {
		p, ok := byID[row.PropertyID]
		if !ok {
			continue
		}
		entries = append(entries, FavoriteEntry{Property: p, FavoritedAt: row.FavoritedAt})
	}
	return entries, total, nil
}
