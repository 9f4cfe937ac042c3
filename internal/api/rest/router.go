// Package rest exposes the marketplace workflows over HTTP/JSON.
package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/metrics"
	"github.com/Leganyst/legal-marketplace/internal/service"
)

const defaultRequestTimeout = 30 * time.Second

// Deps собирает всё, что нужно роутеру.
type Deps struct {
	Services *service.Services
	Tokens   TokenValidator
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// Ping проверяет доступность БД для /health; при nil всегда ok.
	Ping           func(ctx context.Context) error
	RequestTimeout time.Duration
}

type handler struct {
	svc    *service.Services
	logger *zap.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		reg := prometheus.NewRegistry()
		d.Metrics = metrics.New(reg)
		if d.Gatherer == nil {
			d.Gatherer = reg
		}
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}

	h := &handler{svc: d.Services, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(d.Logger))
	r.Use(Latency(d.Metrics))
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/health", healthHandler(d.Ping))
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(d.Tokens, d.Services.Identities, d.Logger))
		h.registerCases(r)
		h.registerConsultations(r)
		h.registerMessaging(r)
		h.registerProviders(r)
		r.Get("/me", h.handleMe)
	})
	return r
}

func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := currentActor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := h.svc.Identities.Resolve(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIdentity(*u))
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domainerr.Newf(domainerr.CodeValidation, "invalid %s", name)
	}
	return id, nil
}

// intQuery читает неотрицательное целое из query; пустое значение даёт def.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domainerr.Newf(domainerr.CodeValidation, "invalid %s", name)
	}
	return v, nil
}

func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domainerr.Newf(domainerr.CodeValidation, "invalid %s", name)
	}
	return v, nil
}

func currentActor(r *http.Request) (access.Actor, error) {
	return access.CurrentActor(r.Context())
}
