package database

import (
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgresConnection opens the shared gorm handle. TranslateError is
// enabled so duplicate-key violations surface as gorm.ErrDuplicatedKey
// regardless of driver.
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
}
