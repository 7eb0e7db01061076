package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations executes schema migrations plus the manual indexes AutoMigrate
// does not cover
func RunMigrations(db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		return err
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createIndexes creates database indexes
func createIndexes(db *gorm.DB) error {
	// Index for the orchestrator's "latest run today" lookup
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sync_runs_day
		ON sync_runs(started_at, status)
	`).Error; err != nil {
		return err
	}

	// Index for event dedup by exact type text
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_case_events_lookup
		ON case_events(case_id, event_type)
	`).Error; err != nil {
		return err
	}

	// Index for party upsert lookups
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_parties_lookup
		ON procedural_parties(case_id, role, name)
	`).Error; err != nil {
		return err
	}

	return nil
}
