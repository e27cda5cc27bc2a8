// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"earthhome/internal/database"
	"earthhome/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens an isolated in-memory SQLite database with foreign keys
// enforced and every persistent model migrated.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with a unique email and returns it.
func CreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// PropertyOption customizes a fixture listing.
type PropertyOption func(*models.Property)

// CreateProperty inserts an active house listing managed by agentID.
func CreateProperty(t *testing.T, db *gorm.DB, title, agentID string, opts ...PropertyOption) *models.Property {
	t.Helper()
	p := &models.Property{
		Title:        title,
		Slug:         fmt.Sprintf("%s-%d", uuid.NewString()[:8], time.Now().UnixNano()),
		ListingType:  models.ListingTypeSale,
		PropertyType: models.PropertyTypeHouse,
		Status:       models.PropertyStatusActive,
		Location:     "Nairobi",
		Currency:     "USD",
	}
	if agentID != "" {
		p.AgentID = &agentID
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
