package database

import "earthhome/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for AutoMigrate: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Session{},
		&models.Account{},
		&models.Verification{},
		&models.Property{},
		&models.Favorite{},
	}
}
