package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

// ProviderFilter: необязательные условия поиска по каталогу юристов.
type ProviderFilter struct {
	Specialization string
	Location       string
	// Подстрока в имени, специализации или городе.
	Query        string
	FeeBand      model.FeeBand
	VerifiedOnly bool
}

type ProviderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error)
	GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*model.ProviderProfile, error)
	// CreateIfAbsent вставляет профиль, если для identity_id его ещё нет.
	// Возвращает false, если профиль уже существовал.
	CreateIfAbsent(ctx context.Context, profile *model.ProviderProfile) (bool, error)
	UpdateByIdentityID(ctx context.Context, identityID uuid.UUID, updates map[string]any) (int64, error)
	Search(ctx context.Context, filter ProviderFilter) ([]model.ProviderProfile, error)
	ListAll(ctx context.Context, verified *bool) ([]model.ProviderProfile, error)
	ClientIdentityIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error)
}

type GormProviderRepository struct {
	db *gorm.DB
}

func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

func (r *GormProviderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProviderProfile, error) {
	var p model.ProviderProfile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProviderRepository) GetByIdentityID(ctx context.Context, identityID uuid.UUID) (*model.ProviderProfile, error) {
	var p model.ProviderProfile
	if err := r.db.WithContext(ctx).First(&p, "identity_id = ?", identityID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProviderRepository) CreateIfAbsent(ctx context.Context, profile *model.ProviderProfile) (bool, error) {
	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			DoNothing: true,
		}).
		Create(profile)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *GormProviderRepository) UpdateByIdentityID(ctx context.Context, identityID uuid.UUID, updates map[string]any) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&model.ProviderProfile{}).
		Where("identity_id = ?", identityID).
		Updates(updates)
	return tx.RowsAffected, tx.Error
}

func (r *GormProviderRepository) Search(ctx context.Context, filter ProviderFilter) ([]model.ProviderProfile, error) {
	q := r.db.WithContext(ctx).Model(&model.ProviderProfile{})

	if filter.VerifiedOnly {
		q = q.Where("verified = ?", true)
	}
	if filter.Specialization != "" {
		q = q.Where("specialization = ?", filter.Specialization)
	}
	if filter.Location != "" {
		q = q.Where("location = ?", filter.Location)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		pattern := likePattern(term)
		q = q.Where(
			"LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(specialization) LIKE ? ESCAPE '\\' OR LOWER(location) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern,
		)
	}
	if terms := filter.FeeBand.Terms(); len(terms) > 0 {
		conds := make([]string, 0, len(terms))
		args := make([]any, 0, len(terms))
		for _, t := range terms {
			conds = append(conds, "LOWER(fee_range) LIKE ? ESCAPE '\\'")
			args = append(args, likePattern(t))
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}

	var profiles []model.ProviderProfile
	if err := q.Order("rating DESC").Order("experience_years DESC").Order("name ASC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *GormProviderRepository) ListAll(ctx context.Context, verified *bool) ([]model.ProviderProfile, error) {
	q := r.db.WithContext(ctx).Model(&model.ProviderProfile{})
	if verified != nil {
		q = q.Where("verified = ?", *verified)
	}
	var profiles []model.ProviderProfile
	if err := q.Order("created_at DESC").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *GormProviderRepository) ClientIdentityIDs(ctx context.Context, profileID uuid.UUID) ([]uuid.UUID, error) {
	var rows []struct {
		ClientIdentityID uuid.UUID
	}
	err := r.db.WithContext(ctx).Raw(
		`SELECT client_identity_id FROM cases WHERE provider_profile_id = ?
		 UNION
		 SELECT client_identity_id FROM consultations WHERE provider_profile_id = ?`,
		profileID, profileID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ClientIdentityID)
	}
	return ids, nil
}

// likePattern builds a case-insensitive substring pattern, escaping LIKE wildcards.
func likePattern(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(term))
	return "%" + escaped + "%"
}
