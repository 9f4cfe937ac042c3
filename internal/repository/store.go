package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store собирает все репозитории поверх одного *gorm.DB.
// Внутри Transaction репозитории привязаны к открытой транзакции.
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Providers     ProviderRepository
	Cases         CaseRepository
	Consultations ConsultationRepository
	Messages      MessageRepository
	Blocks        BlockRepository
	Events        EventRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewGormUserRepository(db),
		Providers:     NewGormProviderRepository(db),
		Cases:         NewGormCaseRepository(db),
		Consultations: NewGormConsultationRepository(db),
		Messages:      NewGormMessageRepository(db),
		Blocks:        NewGormBlockRepository(db),
		Events:        NewGormEventRepository(db),
	}
}

// Transaction runs fn against a Store bound to a single transaction.
// Any error returned by fn rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}
