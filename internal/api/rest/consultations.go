package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

func (h *handler) registerConsultations(r chi.Router) {
	r.Route("/consultations", func(r chi.Router) {
		r.Post("/", h.handleBookConsultation)
		r.Get("/", h.handleListConsultations)
		r.Get("/stats", h.handleConsultationStats)
		r.Patch("/{consultationID}/status", h.handleConsultationStatus)
	})
}

// bookRequest: counterpart_id: юрист, если бронирует клиент, и клиент,
// если бронирует юрист.
type bookRequest struct {
	CounterpartID uuid.UUID `json:"counterpart_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	FeeAmount     float64   `json:"fee_amount"`
	Notes         string    `json:"notes"`
}

func (h *handler) handleBookConsultation(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CounterpartID == uuid.Nil {
		writeError(w, domainerr.New(domainerr.CodeValidation, "counterpart_id is required"))
		return
	}
	if req.ScheduledAt.IsZero() {
		writeError(w, domainerr.New(domainerr.CodeValidation, "scheduled_at is required"))
		return
	}
	c, err := h.svc.Orchestrator.BookConsultation(r.Context(), service.BookingRequest{
		CounterpartID: req.CounterpartID,
		ScheduledAt:   req.ScheduledAt,
		FeeAmount:     req.FeeAmount,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toConsultation(*c))
}

func (h *handler) handleListConsultations(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	scope, err := service.ParseScope(q.Get("scope"))
	if err != nil {
		writeError(w, err)
		return
	}
	period, err := service.ParsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	filter := service.ListFilter{Scope: scope, Period: period}

	var list []model.Consultation
	switch actor.Role {
	case model.RoleClient:
		list, err = h.svc.Consultations.ListForClient(r.Context(), actor.ID, filter)
	case model.RoleProvider:
		list, err = h.svc.Consultations.ListForProvider(r.Context(), actor.ID, filter)
	default:
		err = domainerr.New(domainerr.CodeForbidden, "only clients and providers have consultations")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toConsultation))
}

func (h *handler) handleConsultationStats(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapViewConsultationStats)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.svc.Consultations.Statistics(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleConsultationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "consultationID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Orchestrator.ChangeConsultationStatus(r.Context(), id, model.ConsultationStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toConsultation(*c))
}
