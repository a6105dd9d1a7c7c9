package database

import (
	"log"
	"strings"

	"schoolpay/internal/domain"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	// Registers the cgo-free "sqlite" database/sql driver used below.
	_ "modernc.org/sqlite"
)

// Connect picks the backend by DSN shape: postgres URLs go through the pgx
// driver, anything else is treated as a sqlite path (used for local
// development and tests).
func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	}

	log.Println("Using SQLite:", dsn)

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		&gorm.Config{TranslateError: true},
	)
}

// Migrate keeps the schema current for every persisted aggregate.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Order{},
		&domain.OrderStatus{},
		&domain.WebhookDelivery{},
	)
}
