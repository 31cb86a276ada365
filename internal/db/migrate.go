package db

import (
	"fmt"

	"github.com/mdbin/mdbin/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all persisted models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.IPQuota{},
		&models.Operation{},
		&models.Document{},
		&models.Setting{},
	)
}
