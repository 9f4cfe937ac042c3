package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/utils"
)

// BookingRequest is what the signed-in actor submits to book a consultation.
// CounterpartID is the provider identity when a client books, and the client
// identity when a provider books.
type BookingRequest struct {
	CounterpartID uuid.UUID
	ScheduledAt   time.Time
	FeeAmount     float64
	Notes         string
}

// Orchestrator runs the cross-component workflows for the actor in ctx.
// Each workflow and its notification commit together.
type Orchestrator struct {
	base
	tracer trace.Tracer

	cases         *CaseService
	consultations *ConsultationService
	messaging     *MessagingService
}

func (o *Orchestrator) span(ctx context.Context, name string, actor access.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("actor.id", actor.ID.String()),
		attribute.String("actor.role", string(actor.Role)),
	)
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domainerr.CodeOf(err)))
	}
	span.End()
}

// CreateCase posts a new case for the signed-in client.
func (o *Orchestrator) CreateCase(ctx context.Context, in CaseInput) (c *model.Case, err error) {
	actor, err := access.Require(ctx, access.CapCreateCase)
	if err != nil {
		return nil, err
	}
	ctx, span := o.span(ctx, "orchestrator.CreateCase", actor)
	defer func() { endSpan(span, err) }()

	return o.cases.Create(ctx, actor.ID, in)
}

// TakeCase assigns the case to the signed-in provider and tells the client.
func (o *Orchestrator) TakeCase(ctx context.Context, caseID uuid.UUID) (c *model.Case, err error) {
	actor, err := access.Require(ctx, access.CapTakeCase)
	if err != nil {
		return nil, err
	}
	ctx, span := o.span(ctx, "orchestrator.TakeCase", actor, attribute.String("case.id", caseID.String()))
	defer func() { endSpan(span, err) }()

	ctx, cancel := o.ctx(ctx)
	defer cancel()

	err = o.store.Transaction(ctx, func(tx *repository.Store) error {
		assigned, err := o.cases.assignTx(ctx, tx, caseID, actor.ID)
		if err != nil {
			return err
		}
		c = assigned
		return o.messaging.notifyTx(ctx, tx, actor.ID, assigned.ClientIdentityID,
			caseNotice(assigned, "%s has taken your case and will be in touch.", actor.DisplayName))
	})
	if err != nil {
		o.logger.Info("take case rejected",
			zap.String("case_id", caseID.String()),
			zap.String("identity_id", actor.ID.String()),
			zap.String("code", string(domainerr.CodeOf(err))),
		)
		return nil, err
	}
	return c, nil
}

// BookConsultation schedules a consultation between the actor and the
// counterpart and notifies the counterpart.
func (o *Orchestrator) BookConsultation(ctx context.Context, req BookingRequest) (c *model.Consultation, err error) {
	actor, err := access.Require(ctx, access.CapBookConsultation)
	if err != nil {
		return nil, err
	}
	ctx, span := o.span(ctx, "orchestrator.BookConsultation", actor,
		attribute.String("counterpart.id", req.CounterpartID.String()))
	defer func() { endSpan(span, err) }()

	ctx, cancel := o.ctx(ctx)
	defer cancel()

	err = o.store.Transaction(ctx, func(tx *repository.Store) error {
		in := ScheduleInput{
			ScheduledAt: req.ScheduledAt,
			FeeAmount:   req.FeeAmount,
			Notes:       req.Notes,
			BookedBy:    actor.ID,
		}
		switch actor.Role {
		case model.RoleClient:
			in.ClientID = actor.ID
			in.ProviderIdentityID = req.CounterpartID
		case model.RoleProvider:
			counterpart, err := tx.Users.GetByID(ctx, req.CounterpartID)
			if err != nil {
				return storeErr(err, "client")
			}
			if counterpart.Role != model.RoleClient {
				return validation("consultations are booked with a client")
			}
			in.ClientID = req.CounterpartID
			in.ProviderIdentityID = actor.ID
		}

		booked, err := o.consultations.scheduleTx(ctx, tx, in)
		if err != nil {
			return err
		}
		c = booked
		text := fmt.Sprintf("%s scheduled a consultation with you for %s.",
			actor.DisplayName, utils.FormatConsultationTime(booked.ScheduledAt, nil))
		return o.messaging.notifyTx(ctx, tx, actor.ID, req.CounterpartID, text)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeCaseStatus lets a participant (or a coordinator) set the case status
// and tells the other participants.
func (o *Orchestrator) ChangeCaseStatus(ctx context.Context, caseID uuid.UUID, status model.CaseStatus) (c *model.Case, err error) {
	actor, err := access.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := o.span(ctx, "orchestrator.ChangeCaseStatus", actor,
		attribute.String("case.id", caseID.String()),
		attribute.String("case.status", string(status)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := o.ctx(ctx)
	defer cancel()

	err = o.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Cases.GetByID(ctx, caseID)
		if err != nil {
			return storeErr(err, "case")
		}
		clientID, providerID, err := participants(ctx, tx, current.ClientIdentityID, current.ProviderProfileID)
		if err != nil {
			return err
		}
		if err := authorizeParticipant(actor, clientID, providerID); err != nil {
			return err
		}

		updated, err := o.cases.updateStatusTx(ctx, tx, caseID, status, &actor.ID)
		if err != nil {
			return err
		}
		c = updated

		text := caseNotice(updated, "status changed to %s by %s.", status, actor.DisplayName)
		return o.notifyOthers(ctx, tx, actor.ID, text, clientID, providerID)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ChangeConsultationStatus is ChangeCaseStatus for consultations.
func (o *Orchestrator) ChangeConsultationStatus(ctx context.Context, consultationID uuid.UUID, status model.ConsultationStatus) (c *model.Consultation, err error) {
	actor, err := access.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := o.span(ctx, "orchestrator.ChangeConsultationStatus", actor,
		attribute.String("consultation.id", consultationID.String()),
		attribute.String("consultation.status", string(status)))
	defer func() { endSpan(span, err) }()

	ctx, cancel := o.ctx(ctx)
	defer cancel()

	err = o.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Consultations.GetByID(ctx, consultationID)
		if err != nil {
			return storeErr(err, "consultation")
		}
		profileID := current.ProviderProfileID
		clientID, providerID, err := participants(ctx, tx, current.ClientIdentityID, &profileID)
		if err != nil {
			return err
		}
		if err := authorizeParticipant(actor, clientID, providerID); err != nil {
			return err
		}

		updated, err := o.consultations.updateStatusTx(ctx, tx, consultationID, status, &actor.ID)
		if err != nil {
			return err
		}
		c = updated

		text := fmt.Sprintf("Consultation on %s is now %s (changed by %s).",
			utils.FormatConsultationTime(updated.ScheduledAt, nil), status, actor.DisplayName)
		return o.notifyOthers(ctx, tx, actor.ID, text, clientID, providerID)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func authorizeParticipant(actor access.Actor, clientID uuid.UUID, providerID *uuid.UUID) error {
	if actor.ID == clientID || (providerID != nil && actor.ID == *providerID) {
		return nil
	}
	if actor.Can(access.CapOverrideStatus) {
		return nil
	}
	return domainerr.New(domainerr.CodeForbidden, "only participants may change the status")
}

func (o *Orchestrator) notifyOthers(ctx context.Context, tx *repository.Store, fromID uuid.UUID, text string, clientID uuid.UUID, providerID *uuid.UUID) error {
	targets := []uuid.UUID{clientID}
	if providerID != nil {
		targets = append(targets, *providerID)
	}
	for _, to := range targets {
		if to == fromID {
			continue
		}
		if err := o.messaging.notifyTx(ctx, tx, fromID, to, text); err != nil {
			return err
		}
	}
	return nil
}

// SendConsultationReminders notifies clients about Scheduled consultations
// starting within window. Each consultation is reminded at most once; the
// reminder is recorded as an event in the same transaction as the notice.
// Runs without an actor: it is driven by the scheduler.
func (o *Orchestrator) SendConsultationReminders(ctx context.Context, window time.Duration) (sent int, err error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.SendConsultationReminders",
		trace.WithAttributes(attribute.String("window", window.String())))
	defer func() {
		span.SetAttributes(attribute.Int("reminders.sent", sent))
		endSpan(span, err)
	}()

	ctx, cancel := o.ctx(ctx)
	defer cancel()

	now := o.now()
	due := utils.TimeRange{Start: now, End: now.Add(window)}
	list, err := o.store.Consultations.List(ctx, repository.ConsultationQuery{
		Within:    &due,
		Ascending: true,
	})
	if err != nil {
		return 0, storeErr(err, "consultation")
	}

	for _, c := range list {
		if c.Status != model.ConsultationStatusScheduled {
			continue
		}
		reminded, err := o.remind(ctx, c.ID, due)
		if err != nil {
			return sent, err
		}
		if reminded {
			sent++
		}
	}

	if sent > 0 {
		o.logger.Info("consultation reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}

// remind re-reads the consultation inside the transaction: it may have been
// cancelled or already reminded since the listing.
func (o *Orchestrator) remind(ctx context.Context, id uuid.UUID, due utils.TimeRange) (bool, error) {
	reminded := false
	err := o.store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := tx.Consultations.GetByID(ctx, id)
		if err != nil {
			if notFound(err) {
				return nil
			}
			return storeErr(err, "consultation")
		}
		if c.Status != model.ConsultationStatusScheduled || !due.Contains(c.ScheduledAt) {
			return nil
		}

		events, err := tx.Events.ListByConsultation(ctx, c.ID)
		if err != nil {
			return storeErr(err, "event")
		}
		for _, e := range events {
			if e.EventType == model.EventTypeConsultationReminded {
				return nil
			}
		}

		profileID := c.ProviderProfileID
		clientID, providerID, err := participants(ctx, tx, c.ClientIdentityID, &profileID)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("Reminder: your consultation is on %s.", utils.FormatConsultationTime(c.ScheduledAt, nil))
		if err := o.messaging.notifyTx(ctx, tx, *providerID, clientID, text); err != nil {
			return err
		}
		if err := recordEvent(ctx, tx, model.EventTypeConsultationReminded, nil, nil, &c.ID, text); err != nil {
			return err
		}
		reminded = true
		return nil
	})
	return reminded, err
}
