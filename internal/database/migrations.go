package database

import (
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/models"
)

// AutoMigrate synchronises the schema with the registered models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.VerificationCode{},
		&models.URL{},
		&models.CacheEntry{},
	)
}
