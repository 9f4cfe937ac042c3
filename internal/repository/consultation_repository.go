package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/utils"
)

// ConsultationQuery описывает выборку консультаций одного участника.
type ConsultationQuery struct {
	ClientIdentityID  *uuid.UUID
	ProviderProfileID *uuid.UUID

	// After строго позже, NotBefore/NotAfter включительно.
	After     *time.Time
	NotBefore *time.Time
	NotAfter  *time.Time
	// Within: полуинтервал [Start, End), накладывается поверх остальных условий.
	Within *utils.TimeRange

	Ascending bool
}

// ConsultationCounts: сводка для кабинета юриста.
type ConsultationCounts struct {
	Pending            int64
	Upcoming           int64
	CompletedThisMonth int64
}

type ConsultationRepository interface {
	Create(ctx context.Context, c *model.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus, now time.Time) (bool, error)
	List(ctx context.Context, query ConsultationQuery) ([]model.Consultation, error)
	Stats(ctx context.Context, profileID uuid.UUID, now, monthStart, monthEnd time.Time) (ConsultationCounts, error)
}

type GormConsultationRepository struct {
	db *gorm.DB
}

func NewGormConsultationRepository(db *gorm.DB) *GormConsultationRepository {
	return &GormConsultationRepository{db: db}
}

func (r *GormConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var c model.Consultation
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormConsultationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *GormConsultationRepository) List(ctx context.Context, query ConsultationQuery) ([]model.Consultation, error) {
	q := r.db.WithContext(ctx).Model(&model.Consultation{})

	if query.ClientIdentityID != nil {
		q = q.Where("client_identity_id = ?", *query.ClientIdentityID)
	}
	if query.ProviderProfileID != nil {
		q = q.Where("provider_profile_id = ?", *query.ProviderProfileID)
	}
	if query.After != nil {
		q = q.Where("scheduled_at > ?", *query.After)
	}
	if query.NotBefore != nil {
		q = q.Where("scheduled_at >= ?", *query.NotBefore)
	}
	if query.NotAfter != nil {
		q = q.Where("scheduled_at <= ?", *query.NotAfter)
	}
	if query.Within != nil {
		q = q.Where("scheduled_at >= ? AND scheduled_at < ?", query.Within.Start, query.Within.End)
	}

	if query.Ascending {
		q = q.Order("scheduled_at ASC")
	} else {
		q = q.Order("scheduled_at DESC")
	}

	var out []model.Consultation
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormConsultationRepository) Stats(ctx context.Context, profileID uuid.UUID, now, monthStart, monthEnd time.Time) (ConsultationCounts, error) {
	var out ConsultationCounts
	err := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Select(
			"COUNT(CASE WHEN status = ? THEN 1 END) AS pending, "+
				"COUNT(CASE WHEN scheduled_at > ? THEN 1 END) AS upcoming, "+
				"COUNT(CASE WHEN status = ? AND scheduled_at >= ? AND scheduled_at < ? THEN 1 END) AS completed_this_month",
			model.ConsultationStatusPending,
			now,
			model.ConsultationStatusCompleted, monthStart, monthEnd,
		).
		Where("provider_profile_id = ?", profileID).
		Scan(&out).Error
	return out, err
}
