package service

import (
	"context"
	"testing"
	"time"

	"earthhome/internal/models"
	"earthhome/internal/repository"
	"earthhome/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleFavorite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := NewFavoriteService(repository.NewFavoriteRepository(db), repository.NewPropertyRepository(db))
	ctx := context.Background()

	agent := testutil.CreateUser(t, db, "agent")
	viewer := testutil.CreateUser(t, db, "viewer")
	p := testutil.CreateProperty(t, db, "Harbor View", agent.ID)

	t.Run("anonymous refused", func(t *testing.T) {
		_, err := svc.ToggleFavorite(ctx, nil, p.ID)
		require.Error(t, err)
		assert.Equal(t, "You must be logged in to favorite properties", err.Error())
	})

	t.Run("missing property", func(t *testing.T) {
		_, err := svc.ToggleFavorite(ctx, viewer, models.NewID())
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	t.Run("toggling twice returns to unfavorited", func(t *testing.T) {
		first, err := svc.ToggleFavorite(ctx, viewer, p.ID)
		require.NoError(t, err)
		assert.Equal(t, &ToggleResult{IsFavorited: true, Message: "Added to favorites"}, first)

		second, err := svc.ToggleFavorite(ctx, viewer, p.ID)
		require.NoError(t, err)
		assert.Equal(t, &ToggleResult{IsFavorited: false, Message: "Removed from favorites"}, second)

		var n int64
		require.NoError(t, db.Model(&models.Favorite{}).Count(&n).Error)
		assert.Zero(t, n)
	})
}

func TestGetFavoriteProperties(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := NewFavoriteService(repository.NewFavoriteRepository(db), repository.NewPropertyRepository(db))
	ctx := context.Background()

	agent := testutil.CreateUser(t, db, "agent")
	viewer := testutil.CreateUser(t, db, "viewer")
	older := testutil.CreateProperty(t, db, "Older Pick", agent.ID)
	newer := testutil.CreateProperty(t, db, "Newer Pick", agent.ID)

	require.NoError(t, db.Create(&models.Favorite{UserID: viewer.ID, PropertyID: older.ID, CreatedAt: time.Now().Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.Favorite{UserID: viewer.ID, PropertyID: newer.ID, CreatedAt: time.Now()}).Error)

	page, err := svc.GetFavoriteProperties(ctx, viewer, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Properties, 2)
	assert.Equal(t, newer.ID, page.Properties[0].ID)
	assert.Equal(t, older.ID, page.Properties[1].ID)
	for _, item := range page.Properties {
		assert.True(t, item.IsFavorited)
		require.NotNil(t, item.FavoritedAt)
		require.NotNil(t, item.Agent)
		assert.Equal(t, agent.ID, item.Agent.ID)
	}
	assert.Equal(t, int64(2), page.Pagination.TotalCount)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	_, err = svc.GetFavoriteProperties(ctx, nil, 1, 20)
	assert.Equal(t, models.CodeUnauthorized, models.ErrorCode(err))
}
