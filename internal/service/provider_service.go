package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

// ProfileInput: редактируемые поля профиля юриста.
type ProfileInput struct {
	Name            string
	Contact         string
	Specialization  string
	ExperienceYears int
	Location        string
	Languages       []string
	FeeRange        string
}

// ProviderService maps provider identities to profiles and keeps the catalogue.
type ProviderService struct {
	base
}

// Resolve returns the profile id for a provider identity.
func (s *ProviderService) Resolve(ctx context.Context, identityID uuid.UUID) (uuid.UUID, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, identityID)
	if err != nil {
		return uuid.Nil, storeErr(err, "provider profile")
	}
	return p.ID, nil
}

// Get returns the profile of a provider identity.
func (s *ProviderService) Get(ctx context.Context, identityID uuid.UUID) (*model.ProviderProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, storeErr(err, "provider profile")
	}
	return p, nil
}

// Ensure returns the profile for identityID, provisioning a default one if absent.
func (s *ProviderService) Ensure(ctx context.Context, identityID uuid.UUID) (*model.ProviderProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.ProviderProfile
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		p, _, err := s.ensureTx(ctx, tx, identityID)
		out = p
		return err
	})
	if err != nil {
		return nil, storeErr(err, "provider profile")
	}
	return out, nil
}

// ensureTx is the idempotent provisioning step. Concurrent callers converge
// on one row: the insert ignores an identity_id conflict and we re-read.
func (s *ProviderService) ensureTx(ctx context.Context, tx *repository.Store, identityID uuid.UUID) (*model.ProviderProfile, bool, error) {
	p, err := tx.Providers.GetByIdentityID(ctx, identityID)
	if err == nil {
		return p, false, nil
	}
	if !notFound(err) {
		return nil, false, storeErr(err, "provider profile")
	}

	u, err := tx.Users.GetByID(ctx, identityID)
	if err != nil {
		return nil, false, storeErr(err, "provider identity")
	}
	if u.Role != model.RoleProvider {
		return nil, false, domainerr.Newf(domainerr.CodeForbidden, "identity %s is not a provider", identityID)
	}

	profile := &model.ProviderProfile{
		IdentityID:     identityID,
		Name:           u.DisplayName,
		Contact:        u.Contact,
		Specialization: model.DefaultSpecialization,
		Location:       model.DefaultLocation,
	}
	created, err := tx.Providers.CreateIfAbsent(ctx, profile)
	if err != nil {
		return nil, false, storeErr(err, "provider profile")
	}

	p, err = tx.Providers.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, false, storeErr(err, "provider profile")
	}

	if created {
		actor := identityID
		if err := recordEvent(ctx, tx, model.EventTypeProfileProvisioned, &actor, nil, nil, "auto-provisioned"); err != nil {
			return nil, false, err
		}
		s.metrics.ProfilesProvisioned.Inc()
		s.logger.Info("provider profile provisioned",
			zap.String("identity_id", identityID.String()),
			zap.String("profile_id", p.ID.String()),
		)
	}
	return p, created, nil
}

// UpsertProfile creates or edits the caller's profile. Verification is left as is.
func (s *ProviderService) UpsertProfile(ctx context.Context, identityID uuid.UUID, in ProfileInput) (*model.ProviderProfile, error) {
	if in.ExperienceYears < 0 {
		return nil, validation("experience years must not be negative")
	}

	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.ProviderProfile
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, _, err := s.ensureTx(ctx, tx, identityID); err != nil {
			return err
		}

		updates := map[string]any{
			"experience_years": in.ExperienceYears,
			"fee_range":        strings.TrimSpace(in.FeeRange),
			"updated_at":       s.now(),
		}
		if v := strings.TrimSpace(in.Name); v != "" {
			updates["name"] = v
		}
		if v := strings.TrimSpace(in.Contact); v != "" {
			updates["contact"] = v
		}
		if v := strings.TrimSpace(in.Specialization); v != "" {
			updates["specialization"] = v
		}
		if v := strings.TrimSpace(in.Location); v != "" {
			updates["location"] = v
		}
		if in.Languages != nil {
			updates["languages"] = datatypes.JSONSlice[string](in.Languages)
		}

		if _, err := tx.Providers.UpdateByIdentityID(ctx, identityID, updates); err != nil {
			return storeErr(err, "provider profile")
		}
		p, err := tx.Providers.GetByIdentityID(ctx, identityID)
		if err != nil {
			return storeErr(err, "provider profile")
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search lists catalogue entries, best rated and most experienced first.
func (s *ProviderService) Search(ctx context.Context, filter repository.ProviderFilter) ([]model.ProviderProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out, err := s.store.Providers.Search(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "provider profile")
	}
	return out, nil
}

// ListAll lists every profile, optionally only (un)verified ones.
func (s *ProviderService) ListAll(ctx context.Context, verified *bool) ([]model.ProviderProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out, err := s.store.Providers.ListAll(ctx, verified)
	if err != nil {
		return nil, storeErr(err, "provider profile")
	}
	return out, nil
}

// Verify sets the verification flag on a provider's profile.
func (s *ProviderService) Verify(ctx context.Context, coordinatorID, identityID uuid.UUID, verified bool) (*model.ProviderProfile, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.ProviderProfile
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		n, err := tx.Providers.UpdateByIdentityID(ctx, identityID, map[string]any{
			"verified":   verified,
			"updated_at": s.now(),
		})
		if err != nil {
			return storeErr(err, "provider profile")
		}
		if n == 0 {
			return domainerr.New(domainerr.CodeNotFound, "provider profile not found")
		}

		details := "verified"
		if !verified {
			details = "unverified"
		}
		if err := recordEvent(ctx, tx, model.EventTypeProfileVerified, &coordinatorID, nil, nil, details+" "+identityID.String()); err != nil {
			return err
		}

		p, err := tx.Providers.GetByIdentityID(ctx, identityID)
		if err != nil {
			return storeErr(err, "provider profile")
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clients lists the distinct identities a provider has cases or consultations with.
func (s *ProviderService) Clients(ctx context.Context, providerIdentityID uuid.UUID) ([]model.User, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, providerIdentityID)
	if err != nil {
		if notFound(err) {
			return []model.User{}, nil
		}
		return nil, storeErr(err, "provider profile")
	}

	ids, err := s.store.Providers.ClientIdentityIDs(ctx, p.ID)
	if err != nil {
		return nil, storeErr(err, "client")
	}
	users, err := s.store.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "client")
	}
	return users, nil
}

// recordEvent appends an audit entry inside tx.
func recordEvent(ctx context.Context, tx *repository.Store, typ model.EventType, actor, caseID, consultationID *uuid.UUID, details string) error {
	e := &model.Event{
		EventType:       typ,
		ActorIdentityID: actor,
		CaseID:          caseID,
		ConsultationID:  consultationID,
		Details:         details,
	}
	if err := tx.Events.Record(ctx, e); err != nil {
		return storeErr(err, "event")
	}
	return nil
}
