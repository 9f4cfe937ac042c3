package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

type BlockRepository interface {
	// Create is insert-if-absent; false means the pair already existed.
	Create(ctx context.Context, blocker, blocked uuid.UUID) (bool, error)
	Delete(ctx context.Context, blocker, blocked uuid.UUID) (int64, error)
	Exists(ctx context.Context, blocker, blocked uuid.UUID) (bool, error)
	ListBlocked(ctx context.Context, blocker uuid.UUID) ([]model.BlockRelation, error)
}

type GormBlockRepository struct {
	db *gorm.DB
}

func NewGormBlockRepository(db *gorm.DB) *GormBlockRepository {
	return &GormBlockRepository{db: db}
}

func (r *GormBlockRepository) Create(ctx context.Context, blocker, blocked uuid.UUID) (bool, error) {
	rel := model.BlockRelation{BlockerIdentityID: blocker, BlockedIdentityID: blocked}
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rel)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormBlockRepository) Delete(ctx context.Context, blocker, blocked uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("blocker_identity_id = ? AND blocked_identity_id = ?", blocker, blocked).
		Delete(&model.BlockRelation{})
	return tx.RowsAffected, tx.Error
}

func (r *GormBlockRepository) Exists(ctx context.Context, blocker, blocked uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.BlockRelation{}).
		Where("blocker_identity_id = ? AND blocked_identity_id = ?", blocker, blocked).
		Count(&n).Error
	return n > 0, err
}

func (r *GormBlockRepository) ListBlocked(ctx context.Context, blocker uuid.UUID) ([]model.BlockRelation, error) {
	var rels []model.BlockRelation
	err := r.db.WithContext(ctx).
		Where("blocker_identity_id = ?", blocker).
		Order("created_at DESC").
		Find(&rels).Error
	if err != nil {
		return nil, err
	}
	return rels, nil
}
