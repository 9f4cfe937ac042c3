package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/utils"
)

// Scope selects which part of a consultation list to return.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeUpcoming Scope = "upcoming"
	ScopePast     Scope = "past"
)

// ParseScope maps a query value to a Scope; empty means ScopeAll.
func ParseScope(v string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(v))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeUpcoming:
		return ScopeUpcoming, nil
	case ScopePast:
		return ScopePast, nil
	}
	return "", domainerr.Newf(domainerr.CodeValidation, "unknown scope %q", v)
}

// MaxListPeriod caps an explicit from/to period; longer ones keep the latest part.
const MaxListPeriod = 366 * 24 * time.Hour

// ListFilter narrows a consultation listing. Period is optional and applies
// on top of Scope.
type ListFilter struct {
	Scope  Scope
	Period *utils.TimeRange
}

// ParsePeriod reads an optional RFC 3339 from/to pair. Both empty means no
// period; reversed bounds are swapped.
func ParsePeriod(from, to string) (*utils.TimeRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, validation("from and to must be given together")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return nil, domainerr.Newf(domainerr.CodeValidation, "invalid from %q", from)
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return nil, domainerr.Newf(domainerr.CodeValidation, "invalid to %q", to)
	}
	tr, err := utils.NormalizeTimeRange(start, end, time.UTC, MaxListPeriod)
	if err != nil {
		return nil, domainerr.Wrap(err, domainerr.CodeValidation, "period must not be empty")
	}
	return &tr, nil
}

// ScheduleInput: запрос на назначение консультации.
type ScheduleInput struct {
	ClientID           uuid.UUID
	ProviderIdentityID uuid.UUID
	ScheduledAt        time.Time
	FeeAmount          float64
	Notes              string
	// BookedBy: кто назначил встречу, по умолчанию клиент.
	BookedBy uuid.UUID
}

type ConsultationStats struct {
	Pending            int64 `json:"pending"`
	Upcoming           int64 `json:"upcoming"`
	CompletedThisMonth int64 `json:"completed_this_month"`
}

// ConsultationService schedules and tracks consultations.
type ConsultationService struct {
	base
	providers  *ProviderService
	pastWindow time.Duration
}

// Schedule books a consultation; a provider without a profile gets a default
// one in the same transaction.
func (s *ConsultationService) Schedule(ctx context.Context, in ScheduleInput) (*model.Consultation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Consultation
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.scheduleTx(ctx, tx, in)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ConsultationService) scheduleTx(ctx context.Context, tx *repository.Store, in ScheduleInput) (*model.Consultation, error) {
	if in.ScheduledAt.IsZero() {
		return nil, validation("scheduled time is required")
	}
	if in.FeeAmount < 0 {
		return nil, validation("fee amount must not be negative")
	}
	if in.ClientID == in.ProviderIdentityID {
		return nil, validation("client and provider must differ")
	}

	if _, err := tx.Users.GetByID(ctx, in.ClientID); err != nil {
		return nil, storeErr(err, "client")
	}

	profile, _, err := s.providers.ensureTx(ctx, tx, in.ProviderIdentityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.Consultation{
		ClientIdentityID:  in.ClientID,
		ProviderProfileID: profile.ID,
		ScheduledAt:       in.ScheduledAt.UTC(),
		Status:            model.ConsultationStatusScheduled,
		FeeAmount:         in.FeeAmount,
		Notes:             strings.TrimSpace(in.Notes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.Consultations.Create(ctx, c); err != nil {
		return nil, storeErr(err, "consultation")
	}
	actor := in.BookedBy
	if actor == uuid.Nil {
		actor = in.ClientID
	}
	if err := recordEvent(ctx, tx, model.EventTypeConsultationScheduled, &actor, nil, &c.ID, c.ScheduledAt.Format(time.RFC3339)); err != nil {
		return nil, err
	}

	s.metrics.ConsultationsBooked.Inc()
	s.logger.Info("consultation scheduled",
		zap.String("consultation_id", c.ID.String()),
		zap.String("identity_id", actor.String()),
		zap.String("profile_id", profile.ID.String()),
		zap.Time("scheduled_at", c.ScheduledAt),
	)
	return c, nil
}

func (s *ConsultationService) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	c, err := s.store.Consultations.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "consultation")
	}
	return c, nil
}

// History returns the audit trail of a consultation, oldest first.
func (s *ConsultationService) History(ctx context.Context, id uuid.UUID) ([]model.Event, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if _, err := s.store.Consultations.GetByID(ctx, id); err != nil {
		return nil, storeErr(err, "consultation")
	}
	events, err := s.store.Events.ListByConsultation(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	return events, nil
}

// UpdateStatus writes any known status, Completed may be followed by Cancelled.
func (s *ConsultationService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus, actorID *uuid.UUID) (*model.Consultation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var out *model.Consultation
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.updateStatusTx(ctx, tx, id, status, actorID)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ConsultationService) updateStatusTx(ctx context.Context, tx *repository.Store, id uuid.UUID, status model.ConsultationStatus, actorID *uuid.UUID) (*model.Consultation, error) {
	if !status.Valid() {
		return nil, domainerr.Newf(domainerr.CodeValidation, "unknown consultation status %q", status)
	}

	ok, err := tx.Consultations.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, storeErr(err, "consultation")
	}
	if !ok {
		return nil, domainerr.New(domainerr.CodeNotFound, "consultation not found")
	}

	c, err := tx.Consultations.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "consultation")
	}
	if err := recordEvent(ctx, tx, model.EventTypeConsultationStatusChanged, actorID, nil, &c.ID, string(status)); err != nil {
		return nil, err
	}

	s.metrics.IncStatusChange("consultation", string(status))
	return c, nil
}

func (s *ConsultationService) ListForClient(ctx context.Context, clientID uuid.UUID, f ListFilter) ([]model.Consultation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.filterQuery(f)
	q.ClientIdentityID = &clientID
	return s.list(ctx, q)
}

// ListForProvider returns an empty list for a provider without a profile.
func (s *ConsultationService) ListForProvider(ctx context.Context, providerIdentityID uuid.UUID, f ListFilter) ([]model.Consultation, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, providerIdentityID)
	if err != nil {
		if notFound(err) {
			return []model.Consultation{}, nil
		}
		return nil, storeErr(err, "provider profile")
	}

	q := s.filterQuery(f)
	q.ProviderProfileID = &p.ID
	return s.list(ctx, q)
}

func (s *ConsultationService) list(ctx context.Context, q repository.ConsultationQuery) ([]model.Consultation, error) {
	out, err := s.store.Consultations.List(ctx, q)
	if err != nil {
		return nil, storeErr(err, "consultation")
	}
	return out, nil
}

func (s *ConsultationService) filterQuery(f ListFilter) repository.ConsultationQuery {
	q := s.scopeQuery(f.Scope)
	q.Within = f.Period
	return q
}

// scopeQuery: upcoming is strictly after now, ascending; past is the
// lookback window up to now, descending; all is descending.
func (s *ConsultationService) scopeQuery(scope Scope) repository.ConsultationQuery {
	now := s.now()
	switch scope {
	case ScopeUpcoming:
		return repository.ConsultationQuery{After: &now, Ascending: true}
	case ScopePast:
		w := utils.Lookback(now, s.pastWindow)
		q := repository.ConsultationQuery{NotAfter: &w.End}
		if !w.Start.IsZero() {
			q.NotBefore = &w.Start
		}
		return q
	default:
		return repository.ConsultationQuery{}
	}
}

// Statistics returns zeros for a provider without a profile.
func (s *ConsultationService) Statistics(ctx context.Context, providerIdentityID uuid.UUID) (ConsultationStats, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	p, err := s.store.Providers.GetByIdentityID(ctx, providerIdentityID)
	if err != nil {
		if notFound(err) {
			return ConsultationStats{}, nil
		}
		return ConsultationStats{}, storeErr(err, "provider profile")
	}

	now := s.now()
	month := utils.MonthWindow(now)
	counts, err := s.store.Consultations.Stats(ctx, p.ID, now, month.Start, month.End)
	if err != nil {
		return ConsultationStats{}, storeErr(err, "consultation")
	}
	return ConsultationStats{
		Pending:            counts.Pending,
		Upcoming:           counts.Upcoming,
		CompletedThisMonth: counts.CompletedThisMonth,
	}, nil
}
