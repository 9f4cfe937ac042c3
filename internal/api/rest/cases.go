package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/paging"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

func (h *handler) registerCases(r chi.Router) {
	r.Route("/cases", func(r chi.Router) {
		r.Post("/", h.handleCreateCase)
		r.Get("/", h.handleListCases)
		r.Get("/available", h.handleAvailableCases)
		r.Get("/stats", h.handleCaseStats)
		r.Get("/{caseID}", h.handleGetCase)
		r.Get("/{caseID}/history", h.handleCaseHistory)
		r.Post("/{caseID}/assign", h.handleTakeCase)
		r.Patch("/{caseID}/status", h.handleCaseStatus)
	})
}

type createCaseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handler) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Orchestrator.CreateCase(r.Context(), service.CaseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    model.CasePriority(req.Priority),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCase(*c))
}

// handleListCases отдаёт дела текущего участника: клиенту его собственные,
// юристу назначенные ему.
func (h *handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := caseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := intQuery(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	size, err := intQuery(r, "page_size", paging.DefaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	var cases []model.Case
	switch actor.Role {
	case model.RoleClient:
		cases, err = h.svc.Cases.ListForClient(r.Context(), actor.ID, filter)
	case model.RoleProvider:
		cases, err = h.svc.Cases.ListForProvider(r.Context(), actor.ID, filter)
	default:
		err = domainerr.New(domainerr.CodeForbidden, "only clients and providers have own cases")
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paging.Map(paging.Paginate(cases, page, size), toCase))
}

func caseFilter(r *http.Request) (repository.CaseFilter, error) {
	q := r.URL.Query()
	f := repository.CaseFilter{
		Status:   model.CaseStatus(strings.TrimSpace(q.Get("status"))),
		Category: strings.TrimSpace(q.Get("category")),
		Priority: model.CasePriority(strings.TrimSpace(q.Get("priority"))),
	}
	if f.Status != "" && !strings.EqualFold(string(f.Status), "all") && !f.Status.Valid() {
		return f, domainerr.Newf(domainerr.CodeValidation, "unknown case status %q", f.Status)
	}
	if f.Priority != "" && !strings.EqualFold(string(f.Priority), "all") && !f.Priority.Valid() {
		return f, domainerr.Newf(domainerr.CodeValidation, "unknown case priority %q", f.Priority)
	}
	return f, nil
}

func (h *handler) handleAvailableCases(w http.ResponseWriter, r *http.Request) {
	if _, err := access.Require(r.Context(), access.CapViewAvailableCases); err != nil {
		writeError(w, err)
		return
	}
	cases, err := h.svc.Cases.ListAvailable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(cases, toCase))
}

func (h *handler) handleCaseStats(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.svc.Cases.Statistics(r.Context(), actor.ID, actor.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) handleGetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visibleCase(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCase(*c))
}

func (h *handler) handleCaseHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visibleCase(w, r)
	if !ok {
		return
	}
	events, err := h.svc.Cases.History(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(events, toEvent))
}

// visibleCase loads the case from the URL and checks the actor may see it.
// Unassigned cases are visible to every provider; they browse them before taking.
func (h *handler) visibleCase(w http.ResponseWriter, r *http.Request) (*model.Case, bool) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	id, err := uuidParam(r, "caseID")
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	c, err := h.svc.Cases.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	forbidden := domainerr.New(domainerr.CodeForbidden, "not a participant of this case")
	switch actor.Role {
	case model.RoleCoordinator:
	case model.RoleClient:
		if c.ClientIdentityID != actor.ID {
			writeError(w, forbidden)
			return nil, false
		}
	case model.RoleProvider:
		if c.ProviderProfileID == nil {
			break
		}
		profileID, err := h.svc.Providers.Resolve(r.Context(), actor.ID)
		if err != nil && !domainerr.Is(err, domainerr.CodeNotFound) {
			writeError(w, err)
			return nil, false
		}
		if err != nil || profileID != *c.ProviderProfileID {
			writeError(w, forbidden)
			return nil, false
		}
	default:
		writeError(w, forbidden)
		return nil, false
	}
	return c, true
}

func (h *handler) handleTakeCase(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "caseID")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Orchestrator.TakeCase(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCase(*c))
}

func (h *handler) handleCaseStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "caseID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.Orchestrator.ChangeCaseStatus(r.Context(), id, model.CaseStatus(req.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCase(*c))
}
