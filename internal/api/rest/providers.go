package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

func (h *handler) registerProviders(r chi.Router) {
	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.handleSearchProviders)
		r.Get("/me", h.handleMyProfile)
		r.Put("/me", h.handleUpsertProfile)
		r.Get("/me/clients", h.handleMyClients)
		r.Get("/unverified", h.handleUnverifiedProviders)
		r.Post("/{identityID}/verify", h.handleVerifyProvider)
	})
}

// handleSearchProviders показывает только проверенных юристов; verified_only=false
// доступен координатору.
func (h *handler) handleSearchProviders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	verifiedOnly := true
	if q.Has("verified_only") {
		v, err := boolQuery(r, "verified_only")
		if err != nil {
			writeError(w, err)
			return
		}
		if !v {
			if _, err := access.Require(r.Context(), access.CapListProviders); err != nil {
				writeError(w, err)
				return
			}
		}
		verifiedOnly = v
	}
	band, ok := model.ParseFeeBand(q.Get("fee"))
	if !ok {
		writeError(w, domainerr.Newf(domainerr.CodeValidation, "unknown fee band %q", q.Get("fee")))
		return
	}
	list, err := h.svc.Providers.Search(r.Context(), repository.ProviderFilter{
		Specialization: strings.TrimSpace(q.Get("specialization")),
		Location:       strings.TrimSpace(q.Get("location")),
		Query:          strings.TrimSpace(q.Get("q")),
		FeeBand:        band,
		VerifiedOnly:   verifiedOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toProfile))
}

func (h *handler) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapEditProfile)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Providers.Get(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(*p))
}

type profileRequest struct {
	Name            string   `json:"name"`
	Contact         string   `json:"contact"`
	Specialization  string   `json:"specialization"`
	ExperienceYears int      `json:"experience_years"`
	Location        string   `json:"location"`
	Languages       []string `json:"languages"`
	FeeRange        string   `json:"fee_range"`
}

func (h *handler) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapEditProfile)
	if err != nil {
		writeError(w, err)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.svc.Providers.UpsertProfile(r.Context(), actor.ID, service.ProfileInput{
		Name:            req.Name,
		Contact:         req.Contact,
		Specialization:  req.Specialization,
		ExperienceYears: req.ExperienceYears,
		Location:        req.Location,
		Languages:       req.Languages,
		FeeRange:        req.FeeRange,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(*p))
}

func (h *handler) handleMyClients(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapViewClients)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.svc.Providers.Clients(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(users, toIdentity))
}

func (h *handler) handleUnverifiedProviders(w http.ResponseWriter, r *http.Request) {
	if _, err := access.Require(r.Context(), access.CapListProviders); err != nil {
		writeError(w, err)
		return
	}
	unverified := false
	list, err := h.svc.Providers.ListAll(r.Context(), &unverified)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toProfile))
}

// verifyRequest: без тела или без поля verified профиль подтверждается.
type verifyRequest struct {
	Verified *bool `json:"verified"`
}

func (h *handler) handleVerifyProvider(w http.ResponseWriter, r *http.Request) {
	actor, err := access.Require(r.Context(), access.CapVerifyProvider)
	if err != nil {
		writeError(w, err)
		return
	}
	identityID, err := uuidParam(r, "identityID")
	if err != nil {
		writeError(w, err)
		return
	}
	verified := true
	if r.ContentLength > 0 {
		var req verifyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.Verified != nil {
			verified = *req.Verified
		}
	}
	p, err := h.svc.Providers.Verify(r.Context(), actor.ID, identityID, verified)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfile(*p))
}
