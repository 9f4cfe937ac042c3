package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

// CaseInput: данные нового дела от клиента.
type CaseInput struct {
	Title       string
	Description string
	Category    string
	Priority    model.CasePriority
}

// CaseStats: сводка по делам для кабинета участника.
type CaseStats struct {
	TotalCases     int64 `json:"total_cases"`
	ActiveCases    int64 `json:"active_cases"`
	Correspondents int64 `json:"correspondents"`
	AvailableCases int64 `json:"available_cases"`
}

// CaseService owns the case lifecycle: creation, assignment and status.
type CaseService struct {
	base
	providers *ProviderService
}

func (s *CaseService) Create(ctx context.Context, clientID uuid.UUID, in CaseInput) (*model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Case
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.createTx(ctx, tx, clientID, in)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CaseService) createTx(ctx context.Context, tx *repository.Store, clientID uuid.UUID, in CaseInput) (*model.Case, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.Title == "" {
		return nil, validation("title is required")
	}
	if in.Category == "" {
		return nil, validation("category is required")
	}
	if in.Priority == "" {
		in.Priority = model.CasePriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, domainerr.Newf(domainerr.CodeValidation, "unknown priority %q", in.Priority)
	}

	if _, err := tx.Users.GetByID(ctx, clientID); err != nil {
		return nil, storeErr(err, "client")
	}

	now := s.now()
	c := &model.Case{
		ClientIdentityID: clientID,
		Title:            in.Title,
		Description:      strings.TrimSpace(in.Description),
		Category:         in.Category,
		Status:           model.CaseStatusOpen,
		Priority:         in.Priority,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Cases.Create(ctx, c); err != nil {
		return nil, storeErr(err, "case")
	}
	if err := recordEvent(ctx, tx, model.EventTypeCaseCreated, &clientID, &c.ID, nil, c.Title); err != nil {
		return nil, err
	}

	s.metrics.CasesCreated.Inc()
	s.logger.Info("case created",
		zap.String("case_id", c.ID.String()),
		zap.String("identity_id", clientID.String()),
		zap.String("category", c.Category),
	)
	return c, nil
}

func (s *CaseService) Get(ctx context.Context, caseID uuid.UUID) (*model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	c, err := s.store.Cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	return c, nil
}

// ListAvailable returns open cases nobody has taken yet, newest first.
func (s *CaseService) ListAvailable(ctx context.Context) ([]model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out, err := s.store.Cases.ListAvailable(ctx)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	return out, nil
}

// Assign gives an open unassigned case to the provider behind providerIdentityID.
// Exactly one of several concurrent callers wins; the rest get Conflict.
func (s *CaseService) Assign(ctx context.Context, caseID, providerIdentityID uuid.UUID) (*model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Case
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.assignTx(ctx, tx, caseID, providerIdentityID)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// assignTx does not provision a missing profile: only providers who already
// have one can take cases.
func (s *CaseService) assignTx(ctx context.Context, tx *repository.Store, caseID, providerIdentityID uuid.UUID) (*model.Case, error) {
	p, err := tx.Providers.GetByIdentityID(ctx, providerIdentityID)
	if err != nil {
		return nil, storeErr(err, "provider profile")
	}

	ok, err := tx.Cases.AssignIfAvailable(ctx, caseID, p.ID, s.now())
	if err != nil {
		return nil, storeErr(err, "case")
	}
	if !ok {
		cur, err := tx.Cases.GetByID(ctx, caseID)
		if err != nil {
			return nil, storeErr(err, "case")
		}
		s.metrics.AssignConflicts.Inc()
		if cur.ProviderProfileID == nil {
			return nil, domainerr.Newf(domainerr.CodeConflict, "case is %s and cannot be taken", cur.Status)
		}
		return nil, domainerr.New(domainerr.CodeConflict, "case is already assigned")
	}

	c, err := tx.Cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	if err := recordEvent(ctx, tx, model.EventTypeCaseAssigned, &providerIdentityID, &c.ID, nil, p.Name); err != nil {
		return nil, err
	}

	s.metrics.CasesAssigned.Inc()
	s.logger.Info("case assigned",
		zap.String("case_id", caseID.String()),
		zap.String("identity_id", providerIdentityID.String()),
		zap.String("profile_id", p.ID.String()),
	)
	return c, nil
}

// UpdateStatus writes any known status; there is no transition table.
func (s *CaseService) UpdateStatus(ctx context.Context, caseID uuid.UUID, status model.CaseStatus, actorID *uuid.UUID) (*model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Case
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.updateStatusTx(ctx, tx, caseID, status, actorID)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CaseService) updateStatusTx(ctx context.Context, tx *repository.Store, caseID uuid.UUID, status model.CaseStatus, actorID *uuid.UUID) (*model.Case, error) {
	if !status.Valid() {
		return nil, domainerr.Newf(domainerr.CodeValidation, "unknown case status %q", status)
	}

	ok, err := tx.Cases.UpdateStatus(ctx, caseID, status, s.now())
	if err != nil {
		return nil, storeErr(err, "case")
	}
	if !ok {
		return nil, domainerr.New(domainerr.CodeNotFound, "case not found")
	}

	c, err := tx.Cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	if err := recordEvent(ctx, tx, model.EventTypeCaseStatusChanged, actorID, &c.ID, nil, string(status)); err != nil {
		return nil, err
	}

	s.metrics.IncStatusChange("case", string(status))
	return c, nil
}

func (s *CaseService) ListForClient(ctx context.Context, clientID uuid.UUID, filter repository.CaseFilter) ([]model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	out, err := s.store.Cases.ListByClient(ctx, clientID, filter)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	return out, nil
}

// ListForProvider returns an empty list for a provider without a profile.
func (s *CaseService) ListForProvider(ctx context.Context, providerIdentityID uuid.UUID, filter repository.CaseFilter) ([]model.Case, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, providerIdentityID)
	if err != nil {
		if notFound(err) {
			return []model.Case{}, nil
		}
		return nil, storeErr(err, "provider profile")
	}

	out, err := s.store.Cases.ListByProvider(ctx, p.ID, filter)
	if err != nil {
		return nil, storeErr(err, "case")
	}
	return out, nil
}

// Statistics summarises cases from the point of view of actorID.
func (s *CaseService) Statistics(ctx context.Context, actorID uuid.UUID, role model.Role) (CaseStats, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var (
		counts repository.CaseCounts
		stats  CaseStats
		err    error
	)

	switch role {
	case model.RoleClient:
		counts, err = s.store.Cases.CountByClient(ctx, actorID)
	case model.RoleProvider:
		p, perr := s.store.Providers.GetByIdentityID(ctx, actorID)
		switch {
		case perr == nil:
			counts, err = s.store.Cases.CountByProvider(ctx, p.ID)
		case !notFound(perr):
			err = perr
		}
		if err == nil {
			stats.AvailableCases, err = s.store.Cases.CountAvailable(ctx)
		}
	case model.RoleCoordinator:
		counts, err = s.store.Cases.CountAll(ctx)
		if err == nil {
			stats.AvailableCases, err = s.store.Cases.CountAvailable(ctx)
		}
	default:
		return CaseStats{}, domainerr.Newf(domainerr.CodeValidation, "unknown role %q", role)
	}
	if err != nil {
		return CaseStats{}, storeErr(err, "case")
	}

	stats.TotalCases = counts.Total
	stats.ActiveCases = counts.Active
	stats.Correspondents = counts.Correspondents
	return stats, nil
}

// History returns the audit trail of a case, oldest first.
func (s *CaseService) History(ctx context.Context, caseID uuid.UUID) ([]model.Event, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if _, err := s.store.Cases.GetByID(ctx, caseID); err != nil {
		return nil, storeErr(err, "case")
	}
	events, err := s.store.Events.ListByCase(ctx, caseID)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	return events, nil
}

// participants returns the client and, if assigned, the provider identity of c.
func participants(ctx context.Context, tx *repository.Store, clientID uuid.UUID, profileID *uuid.UUID) (uuid.UUID, *uuid.UUID, error) {
	if profileID == nil {
		return clientID, nil, nil
	}
	p, err := tx.Providers.GetByID(ctx, *profileID)
	if err != nil {
		return uuid.Nil, nil, storeErr(err, "provider profile")
	}
	id := p.IdentityID
	return clientID, &id, nil
}

func caseNotice(c *model.Case, format string, args ...any) string {
	return fmt.Sprintf("[Case %q] ", c.Title) + fmt.Sprintf(format, args...)
}

