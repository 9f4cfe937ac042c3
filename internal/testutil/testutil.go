// Package testutil opens throwaway SQLite stores and seeds identities for
// package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/config"
	"github.com/Leganyst/legal-marketplace/internal/db"
	"github.com/Leganyst/legal-marketplace/internal/model"
)

// NewDB opens a file-backed SQLite database in t.TempDir with the
// schema applied. A file is used so pooled connections share one database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DBConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
	}
	gdb, err := db.NewGormDB(cfg)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(gdb, config.DriverSQLite); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// SeedUser inserts an identity straight into the directory table.
func SeedUser(t *testing.T, gdb *gorm.DB, role model.Role, name string) model.User {
	t.Helper()
	u := model.User{
		ID:          uuid.New(),
		Role:        role,
		DisplayName: name,
		Contact:     name + "@example.test",
	}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", name, err)
	}
	return u
}

// SeedProfile inserts a provider profile for identity.
func SeedProfile(t *testing.T, gdb *gorm.DB, identity model.User, mutate ...func(*model.ProviderProfile)) model.ProviderProfile {
	t.Helper()
	p := model.ProviderProfile{
		IdentityID:     identity.ID,
		Name:           identity.DisplayName,
		Contact:        identity.Contact,
		Specialization: "Property Law",
		Location:       "Delhi",
	}
	for _, fn := range mutate {
		fn(&p)
	}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed profile for %s: %v", identity.DisplayName, err)
	}
	return p
}

// SeedMessage inserts a message with an explicit send time.
func SeedMessage(t *testing.T, gdb *gorm.DB, from, to uuid.UUID, body string, at time.Time) model.Message {
	t.Helper()
	m := model.Message{
		SenderIdentityID:   from,
		ReceiverIdentityID: to,
		Body:               body,
		SentAt:             at.UTC(),
	}
	if err := gdb.WithContext(context.Background()).Create(&m).Error; err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}
	return m
}

// Clock is a settable time source for services.
type Clock struct {
	T time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{T: t.UTC()}
}

func (c *Clock) Now() time.Time {
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
