package rest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/access"
	"github.com/Leganyst/legal-marketplace/internal/domainerr"
	"github.com/Leganyst/legal-marketplace/internal/metrics"
)

// TokenValidator resolves a bearer token to an identity id.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// RequireAuth проверяет bearer-токен, находит идентичность и кладёт Actor в контекст.
func RequireAuth(tokens TokenValidator, identities access.IdentityStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, domainerr.New(domainerr.CodeUnauthorized, "missing bearer token"))
				return
			}
			id, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("token rejected", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
				writeError(w, err)
				return
			}
			actor, err := access.ValidateActor(r.Context(), identities, id)
			if err != nil {
				if !domainerr.Is(err, domainerr.CodeUnauthorized) {
					logger.Error("identity lookup failed", zap.Error(err), zap.Stringer("identity_id", id))
				}
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(access.WithActor(r.Context(), *actor)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequestLogger пишет одну строку на запрос.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", statusOf(ww)),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if statusOf(ww) >= http.StatusInternalServerError {
				logger.Warn("request failed", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

// Latency records request duration by route pattern, so path ids do not
// blow up label cardinality.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.ObserveRequest(r.Method, route, strconv.Itoa(statusOf(ww)), time.Since(start).Seconds())
		})
	}
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
