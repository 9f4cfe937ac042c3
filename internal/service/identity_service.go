package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

// IdentityService: справочник идентичностей. Ядро его только читает;
// Register и UpdateContacts нужны CLI для локальной разработки.
type IdentityService struct {
	userRepo repository.UserRepository
	timeout  time.Duration
}

func NewIdentityService(userRepo repository.UserRepository, timeout time.Duration) *IdentityService {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &IdentityService{userRepo: userRepo, timeout: timeout}
}

// Resolve возвращает идентичность по id или NotFound.
func (s *IdentityService) Resolve(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if id == uuid.Nil {
		return nil, validation("identity id is required")
	}
	ctx, cancel := withQueryTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "identity")
	}
	return u, nil
}

// LookupIdentity satisfies access.IdentityStore.
func (s *IdentityService) LookupIdentity(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.Resolve(ctx, id)
}

// Register создаёт идентичность с заданной ролью.
func (s *IdentityService) Register(ctx context.Context, role model.Role, displayName, contact string) (*model.User, error) {
	if !role.Valid() {
		return nil, domainerr.Newf(domainerr.CodeValidation, "unknown role %q", role)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, validation("display name is required")
	}

	ctx, cancel := withQueryTimeout(ctx, s.timeout)
	defer cancel()

	u := &model.User{Role: role, DisplayName: displayName, Contact: contact}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, storeErr(err, "identity")
	}
	return u, nil
}

// UpdateContacts обновляет отображаемое имя и контакт; пустые значения не трогаются.
func (s *IdentityService) UpdateContacts(ctx context.Context, id uuid.UUID, displayName, contact string) (*model.User, error) {
	if id == uuid.Nil {
		return nil, validation("identity id is required")
	}
	ctx, cancel := withQueryTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.userRepo.UpdateContacts(ctx, id, strings.TrimSpace(displayName), contact)
	if err != nil {
		return nil, storeErr(err, "identity")
	}
	return u, nil
}

// DisplayNames returns id → display name for the identities that exist.
func (s *IdentityService) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	ctx, cancel := withQueryTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "identity")
	}
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}
