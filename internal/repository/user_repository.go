package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	UpdateContacts(ctx context.Context, id uuid.UUID, displayName, contact string) (*model.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	var users []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *model.User) error {
	user.Contact = normalizeContact(user.Contact)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *GormUserRepository) UpdateContacts(ctx context.Context, id uuid.UUID, displayName, contact string) (*model.User, error) {
	updates := map[string]any{}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if contact != "" {
		updates["contact"] = normalizeContact(contact)
	}
	if len(updates) == 0 {
		// nothing to update; just return current user
		return r.GetByID(ctx, id)
	}
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// normalizeContact lowercases e-mail addresses and strips phone formatting.
func normalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ""
	}
	if strings.Contains(contact, "@") {
		return strings.ToLower(contact)
	}
	// Keep only digits and a leading plus; ignore formatting characters.
	b := make([]byte, 0, len(contact))
	for i := 0; i < len(contact); i++ {
		c := contact[i]
		if (c >= '0' && c <= '9') || (c == '+' && len(b) == 0) {
			b = append(b, c)
		}
	}
	return string(b)
}
