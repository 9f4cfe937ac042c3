package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

// CaseFilter narrows case listings. Empty fields (or "All") are ignored.
type CaseFilter struct {
	Status   model.CaseStatus
	Category string
	Priority model.CasePriority
}

func (f CaseFilter) apply(q *gorm.DB) *gorm.DB {
	if isSet(string(f.Status)) {
		q = q.Where("status = ?", f.Status)
	}
	if isSet(f.Category) {
		q = q.Where("category = ?", f.Category)
	}
	if isSet(string(f.Priority)) {
		q = q.Where("priority = ?", f.Priority)
	}
	return q
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "all")
}

// CaseCounts: агрегаты по делам одного участника.
type CaseCounts struct {
	Total          int64
	Active         int64
	Correspondents int64
}

type CaseRepository interface {
	Create(ctx context.Context, c *model.Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Case, error)
	ListAvailable(ctx context.Context) ([]model.Case, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, filter CaseFilter) ([]model.Case, error)
	ListByProvider(ctx context.Context, profileID uuid.UUID, filter CaseFilter) ([]model.Case, error)
	// AssignIfAvailable sets the provider only while the case is Open and has none,
	// the same rows ListAvailable returns.
	// Returns false when no row matched.
	AssignIfAvailable(ctx context.Context, caseID, profileID uuid.UUID, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, caseID uuid.UUID, status model.CaseStatus, now time.Time) (bool, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (CaseCounts, error)
	CountByProvider(ctx context.Context, profileID uuid.UUID) (CaseCounts, error)
	CountAll(ctx context.Context) (CaseCounts, error)
	CountAvailable(ctx context.Context) (int64, error)
}

type GormCaseRepository struct {
	db *gorm.DB
}

func NewGormCaseRepository(db *gorm.DB) *GormCaseRepository {
	return &GormCaseRepository{db: db}
}

func (r *GormCaseRepository) Create(ctx context.Context, c *model.Case) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormCaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Case, error) {
	var c model.Case
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormCaseRepository) ListAvailable(ctx context.Context) ([]model.Case, error) {
	var cases []model.Case
	err := r.db.WithContext(ctx).
		Where("provider_profile_id IS NULL").
		Where("status = ?", model.CaseStatusOpen).
		Order("created_at DESC").
		Order("id ASC").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *GormCaseRepository) ListByClient(ctx context.Context, clientID uuid.UUID, filter CaseFilter) ([]model.Case, error) {
	q := r.db.WithContext(ctx).Where("client_identity_id = ?", clientID)
	return r.list(filter.apply(q))
}

func (r *GormCaseRepository) ListByProvider(ctx context.Context, profileID uuid.UUID, filter CaseFilter) ([]model.Case, error) {
	q := r.db.WithContext(ctx).Where("provider_profile_id = ?", profileID)
	return r.list(filter.apply(q))
}

func (r *GormCaseRepository) list(q *gorm.DB) ([]model.Case, error) {
	var cases []model.Case
	if err := q.Order("updated_at DESC").Order("created_at DESC").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *GormCaseRepository) AssignIfAvailable(ctx context.Context, caseID, profileID uuid.UUID, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Case{}).
		Where("id = ? AND provider_profile_id IS NULL AND status = ?", caseID, model.CaseStatusOpen).
		Updates(map[string]any{
			"provider_profile_id": profileID,
			"status":              model.CaseStatusInProgress,
			"updated_at":          now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *GormCaseRepository) UpdateStatus(ctx context.Context, caseID uuid.UUID, status model.CaseStatus, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.Case{}).
		Where("id = ?", caseID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

var activeCaseStatuses = []model.CaseStatus{model.CaseStatusOpen, model.CaseStatusInProgress}

func (r *GormCaseRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (CaseCounts, error) {
	return r.count(ctx, "provider_profile_id", "client_identity_id = ?", clientID)
}

func (r *GormCaseRepository) CountByProvider(ctx context.Context, profileID uuid.UUID) (CaseCounts, error) {
	return r.count(ctx, "client_identity_id", "provider_profile_id = ?", profileID)
}

func (r *GormCaseRepository) CountAll(ctx context.Context) (CaseCounts, error) {
	return r.count(ctx, "client_identity_id", "1 = 1")
}

// count runs a single aggregate; COUNT(DISTINCT) skips NULL counterparts.
func (r *GormCaseRepository) count(ctx context.Context, counterpart, where string, args ...any) (CaseCounts, error) {
	var out CaseCounts
	err := r.db.WithContext(ctx).
		Model(&model.Case{}).
		Select(
			"COUNT(*) AS total, "+
				"COUNT(CASE WHEN status IN ? THEN 1 END) AS active, "+
				"COUNT(DISTINCT "+counterpart+") AS correspondents",
			activeCaseStatuses,
		).
		Where(where, args...).
		Scan(&out).Error
	return out, err
}

func (r *GormCaseRepository) CountAvailable(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Case{}).
		Where("provider_profile_id IS NULL").
		Where("status = ?", model.CaseStatusOpen).
		Count(&n).Error
	return n, err
}
