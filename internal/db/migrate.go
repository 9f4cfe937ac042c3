package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/config"
	"github.com/Leganyst/legal-marketplace/internal/model"
)

// Migrate создаёт схему. Для Postgres используется AutoMigrate по моделям;
// теги моделей завязаны на функции Postgres (gen_random_uuid, now),
// поэтому для SQLite схема описана отдельно.
func Migrate(db *gorm.DB, driver string) error {
	if driver == config.DriverSQLite {
		for _, stmt := range sqliteSchema {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("sqlite schema: %w", err)
			}
		}
		return nil
	}
	return model.AutoMigrate(db)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		display_name TEXT NOT NULL,
		contact TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS provider_profiles (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		contact TEXT,
		specialization TEXT NOT NULL,
		experience_years INTEGER NOT NULL DEFAULT 0,
		location TEXT,
		languages TEXT,
		fee_range TEXT,
		rating REAL NOT NULL DEFAULT 0,
		verified BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		client_identity_id TEXT NOT NULL,
		provider_profile_id TEXT,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Open',
		priority TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cases_provider ON cases (provider_profile_id);`,
	`CREATE INDEX IF NOT EXISTS idx_cases_client ON cases (client_identity_id);`,
	`CREATE TABLE IF NOT EXISTS consultations (
		id TEXT PRIMARY KEY,
		client_identity_id TEXT NOT NULL,
		provider_profile_id TEXT NOT NULL,
		scheduled_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		fee_amount REAL NOT NULL DEFAULT 0,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_identity_id TEXT NOT NULL,
		receiver_identity_id TEXT NOT NULL,
		body TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		read_at DATETIME
	);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (sender_identity_id, receiver_identity_id);`,
	`CREATE TABLE IF NOT EXISTS block_relations (
		blocker_identity_id TEXT NOT NULL,
		blocked_identity_id TEXT NOT NULL,
		created_at DATETIME,
		PRIMARY KEY (blocker_identity_id, blocked_identity_id)
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		created_at DATETIME,
		actor_identity_id TEXT,
		case_id TEXT,
		consultation_id TEXT,
		details TEXT
	);`,
}
