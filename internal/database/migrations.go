package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Member{},
		&models.Item{},
		&models.Accommodation{},
		&models.Expense{},
		&models.Split{},
		&models.Photo{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
		&models.CacheEntry{},
	)
}
