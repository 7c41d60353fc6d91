package database

import (
	"log"

	"github.com/HelderMendes/events-tickets/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Event{}, &models.WaitlistEntry{}, &models.Ticket{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: at most one non-expired waitlist entry per
	// (event, user). Purchased entries still block re-joining.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_live
		ON waitlist_entries (event_id, user_id)
		WHERE status <> 'expired'
	`)

	return db
}
