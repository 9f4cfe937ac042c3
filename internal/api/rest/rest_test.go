package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/authtoken"
	"github.com/Leganyst/legal-marketplace/internal/metrics"
	"github.com/Leganyst/legal-marketplace/internal/model"
	"github.com/Leganyst/legal-marketplace/internal/paging"
	"github.com/Leganyst/legal-marketplace/internal/repository"
	"github.com/Leganyst/legal-marketplace/internal/service"
	"github.com/Leganyst/legal-marketplace/internal/testutil"
)

type apiEnv struct {
	db     *gorm.DB
	tokens *authtoken.Service
	router http.Handler
	clock  *testutil.Clock
}

func newAPI(t *testing.T, ping func(context.Context) error) *apiEnv {
	t.Helper()
	gdb := testutil.NewDB(t)
	clock := testutil.NewClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := zaptest.NewLogger(t)

	svc := service.New(repository.NewStore(gdb), service.Options{
		Logger:  logger,
		Metrics: m,
		Now:     clock.Now,
	})
	tokens := authtoken.NewService("test-secret", "legal-marketplace")
	router := NewRouter(Deps{
		Services: svc,
		Tokens:   tokens,
		Logger:   logger,
		Metrics:  m,
		Gatherer: reg,
		Ping:     ping,
	})
	return &apiEnv{db: gdb, tokens: tokens, router: router, clock: clock}
}

func (e *apiEnv) token(t *testing.T, u model.User) string {
	t.Helper()
	tok, err := e.tokens.Issue(u.ID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decode[errorResponse](t, rec)
	assert.Equal(t, code, body.Error)
	assert.NotEmpty(t, body.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Run("healthy store", func(t *testing.T) {
		e := newAPI(t, func(context.Context) error { return nil })
		rec := e.do(t, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

		rec = e.do(t, http.MethodGet, "/metrics", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "legalaid_http_request_duration_seconds")
		assert.Contains(t, rec.Body.String(), `route="/health"`)
	})

	t.Run("store down", func(t *testing.T) {
		e := newAPI(t, func(context.Context) error { return errors.New("connection refused") })
		rec := e.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAuthentication(t *testing.T) {
	e := newAPI(t, nil)
	client := testutil.SeedUser(t, e.db, model.RoleClient, "asha")

	t.Run("missing header", func(t *testing.T) {
		assertError(t, e.do(t, http.MethodGet, "/cases", "", nil), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("foreign signature", func(t *testing.T) {
		other := authtoken.NewService("other-secret", "legal-marketplace")
		tok, err := other.Issue(client.ID, time.Hour)
		require.NoError(t, err)
		assertError(t, e.do(t, http.MethodGet, "/cases", tok, nil), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("unknown identity", func(t *testing.T) {
		tok, err := e.tokens.Issue(uuid.New(), time.Hour)
		require.NoError(t, err)
		assertError(t, e.do(t, http.MethodGet, "/cases", tok, nil), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("valid token", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/me", e.token(t, client), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		me := decode[identityResponse](t, rec)
		assert.Equal(t, client.ID, me.ID)
		assert.Equal(t, "client", me.Role)
	})
}

func TestCaseWorkflow(t *testing.T) {
	e := newAPI(t, nil)
	client := testutil.SeedUser(t, e.db, model.RoleClient, "asha")
	stranger := testutil.SeedUser(t, e.db, model.RoleClient, "ravi")
	first := testutil.SeedUser(t, e.db, model.RoleProvider, "meera")
	second := testutil.SeedUser(t, e.db, model.RoleProvider, "kabir")
	testutil.SeedProfile(t, e.db, first)
	testutil.SeedProfile(t, e.db, second)

	clientTok := e.token(t, client)

	rec := e.do(t, http.MethodPost, "/cases", clientTok, createCaseRequest{
		Title:    "Boundary dispute",
		Category: "Property",
		Priority: "High",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[caseResponse](t, rec)
	assert.Equal(t, "Open", created.Status)
	assert.Nil(t, created.ProviderProfileID)

	// Клиент не может брать дела.
	assertError(t, e.do(t, http.MethodPost, "/cases/"+created.ID.String()+"/assign", clientTok, nil), http.StatusForbidden, "forbidden")

	rec = e.do(t, http.MethodGet, "/cases/available", e.token(t, first), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]caseResponse](t, rec), 1)

	rec = e.do(t, http.MethodPost, "/cases/"+created.ID.String()+"/assign", e.token(t, first), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, decode[caseResponse](t, rec).ProviderProfileID)

	assertError(t, e.do(t, http.MethodPost, "/cases/"+created.ID.String()+"/assign", e.token(t, second), nil), http.StatusConflict, "conflict")
	assertError(t, e.do(t, http.MethodGet, "/cases/"+created.ID.String(), e.token(t, second), nil), http.StatusForbidden, "forbidden")
	assertError(t, e.do(t, http.MethodGet, "/cases/"+created.ID.String(), e.token(t, stranger), nil), http.StatusForbidden, "forbidden")

	rec = e.do(t, http.MethodGet, "/cases?status=InProgress&page_size=5", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[paging.Page[caseResponse]](t, rec)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.PageSize)

	rec = e.do(t, http.MethodPatch, "/cases/"+created.ID.String()+"/status", e.token(t, first), statusRequest{Status: "InProgress"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "InProgress", decode[caseResponse](t, rec).Status)

	rec = e.do(t, http.MethodGet, "/cases/"+created.ID.String()+"/history", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var types []string
	for _, ev := range decode[[]eventResponse](t, rec) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"case_created", "case_assigned", "case_status_changed"}, types)

	rec = e.do(t, http.MethodGet, "/cases/stats", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[service.CaseStats](t, rec)
	assert.EqualValues(t, 1, stats.TotalCases)
	assert.EqualValues(t, 1, stats.ActiveCases)
	assert.EqualValues(t, 1, stats.Correspondents)

	// Уведомления о взятии дела и смене статуса пришли клиенту.
	rec = e.do(t, http.MethodGet, "/threads/"+first.ID.String()+"?peek=true", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]messageResponse](t, rec)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, first.ID, m.SenderID)
		assert.Nil(t, m.ReadAt)
	}
}

func TestCaseRequestValidation(t *testing.T) {
	e := newAPI(t, nil)
	client := testutil.SeedUser(t, e.db, model.RoleClient, "asha")
	tok := e.token(t, client)

	assertError(t, e.do(t, http.MethodGet, "/cases/not-a-uuid", tok, nil), http.StatusBadRequest, "validation_error")
	assertError(t, e.do(t, http.MethodGet, "/cases/"+uuid.NewString(), tok, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do(t, http.MethodGet, "/cases?status=Lost", tok, nil), http.StatusBadRequest, "validation_error")
	assertError(t, e.do(t, http.MethodGet, "/cases?page=-1", tok, nil), http.StatusBadRequest, "validation_error")
	assertError(t, e.do(t, http.MethodPost, "/cases", tok, map[string]string{"title": "x", "unexpected": "y"}), http.StatusBadRequest, "validation_error")
	assertError(t, e.do(t, http.MethodPost, "/cases", tok, createCaseRequest{Title: " ", Category: "Family"}), http.StatusBadRequest, "validation_error")
}

func TestConsultationEndpoints(t *testing.T) {
	e := newAPI(t, nil)
	client := testutil.SeedUser(t, e.db, model.RoleClient, "asha")
	provider := testutil.SeedUser(t, e.db, model.RoleProvider, "meera")
	providerTok := e.token(t, provider)

	// Профиля у юриста ещё нет: бронирование создаёт его.
	rec := e.do(t, http.MethodPost, "/consultations", e.token(t, client), bookRequest{
		CounterpartID: provider.ID,
		ScheduledAt:   e.clock.Now().Add(48 * time.Hour),
		FeeAmount:     1500,
		Notes:         "tenancy",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booked := decode[consultationResponse](t, rec)
	assert.Equal(t, "Scheduled", booked.Status)

	rec = e.do(t, http.MethodGet, "/consultations?scope=upcoming", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[[]consultationResponse](t, rec), 1)

	rec = e.do(t, http.MethodGet, "/consultations?scope=past", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]consultationResponse](t, rec))

	rec = e.do(t, http.MethodGet, "/consultations?from=2025-06-17T00:00:00Z&to=2025-06-18T00:00:00Z", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[[]consultationResponse](t, rec), 1)
	rec = e.do(t, http.MethodGet, "/consultations?from=2025-06-15T00:00:00Z&to=2025-06-17T12:00:00Z", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]consultationResponse](t, rec), "the upper bound is exclusive")
	assertError(t, e.do(t, http.MethodGet, "/consultations?from=2025-06-17T00:00:00Z", providerTok, nil), http.StatusBadRequest, "validation_error")

	rec = e.do(t, http.MethodGet, "/consultations/stats", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[service.ConsultationStats](t, rec).Upcoming)

	assertError(t, e.do(t, http.MethodGet, "/consultations/stats", e.token(t, client), nil), http.StatusForbidden, "forbidden")
	assertError(t, e.do(t, http.MethodGet, "/consultations?scope=someday", providerTok, nil), http.StatusBadRequest, "validation_error")

	rec = e.do(t, http.MethodPatch, "/consultations/"+booked.ID.String()+"/status", providerTok, statusRequest{Status: "Completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Completed", decode[consultationResponse](t, rec).Status)

	assertError(t, e.do(t, http.MethodPatch, "/consultations/"+booked.ID.String()+"/status", providerTok, statusRequest{Status: "Done"}), http.StatusBadRequest, "validation_error")
}

func TestMessagingEndpoints(t *testing.T) {
	e := newAPI(t, nil)
	asha := testutil.SeedUser(t, e.db, model.RoleClient, "asha")
	meera := testutil.SeedUser(t, e.db, model.RoleProvider, "meera")
	ashaTok, meeraTok := e.token(t, asha), e.token(t, meera)

	for i := 0; i < 3; i++ {
		rec := e.do(t, http.MethodPost, "/messages", ashaTok, sendMessageRequest{ReceiverID: meera.ID, Body: fmt.Sprintf("question %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := e.do(t, http.MethodGet, "/messages/unread", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode[map[string]int64](t, rec)["unread_count"])

	rec = e.do(t, http.MethodGet, "/conversations", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode[[]service.Conversation](t, rec)
	require.Len(t, convs, 1)
	assert.Equal(t, "asha", convs[0].OtherDisplayName)
	assert.EqualValues(t, 3, convs[0].UnreadCount)

	rec = e.do(t, http.MethodGet, "/threads/"+asha.ID.String()+"?limit=2", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	thread := decode[[]messageResponse](t, rec)
	require.Len(t, thread, 2)
	assert.Equal(t, "question 1", thread[0].Body)
	assert.Equal(t, "question 2", thread[1].Body)

	rec = e.do(t, http.MethodGet, "/messages/unread", meeraTok, nil)
	assert.EqualValues(t, 0, decode[map[string]int64](t, rec)["unread_count"])

	rec = e.do(t, http.MethodGet, "/threads/"+asha.ID.String()+"/search?q=QUESTION%201", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]messageResponse](t, rec), 1)

	// Удалить чужое сообщение нельзя.
	id := thread[0].ID
	assertError(t, e.do(t, http.MethodDelete, fmt.Sprintf("/messages/%d", id), meeraTok, nil), http.StatusForbidden, "forbidden")
	rec = e.do(t, http.MethodDelete, fmt.Sprintf("/messages/%d", id), ashaTok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodPost, "/blocks", meeraTok, blockRequest{IdentityID: asha.ID})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assertError(t, e.do(t, http.MethodPost, "/messages", ashaTok, sendMessageRequest{ReceiverID: meera.ID, Body: "hello?"}), http.StatusForbidden, "forbidden")

	rec = e.do(t, http.MethodGet, "/blocks", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blocked := decode[[]service.BlockedIdentity](t, rec)
	require.Len(t, blocked, 1)
	assert.Equal(t, asha.ID, blocked[0].IdentityID)
	assert.Equal(t, "asha", blocked[0].DisplayName)

	rec = e.do(t, http.MethodDelete, "/blocks/"+asha.ID.String(), meeraTok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(t, http.MethodGet, "/blocks", meeraTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]service.BlockedIdentity](t, rec))
	rec = e.do(t, http.MethodPost, "/messages", ashaTok, sendMessageRequest{ReceiverID: meera.ID, Body: "hello?"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/conversations/stats", ashaTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[service.ConversationStats](t, rec)
	assert.EqualValues(t, 1, stats.ConversationCount)
	assert.EqualValues(t, 3, stats.MessageCount)
}

func TestProviderEndpoints(t *testing.T) {
	e := newAPI(t, nil)
	client := testutil.SeedUser(t, e.db, model.RoleClient, "asha")
	provider := testutil.SeedUser(t, e.db, model.RoleProvider, "meera")
	coordinator := testutil.SeedUser(t, e.db, model.RoleCoordinator, "nisha")
	providerTok, coordTok := e.token(t, provider), e.token(t, coordinator)

	assertError(t, e.do(t, http.MethodGet, "/providers/me", providerTok, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do(t, http.MethodPut, "/providers/me", e.token(t, client), profileRequest{Name: "x"}), http.StatusForbidden, "forbidden")

	rec := e.do(t, http.MethodPut, "/providers/me", providerTok, profileRequest{
		Specialization:  "Family Law",
		ExperienceYears: 7,
		Location:        "Mumbai",
		Languages:       []string{"Hindi", "English"},
		FeeRange:        "2000-3000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[profileResponse](t, rec)
	assert.Equal(t, "Family Law", profile.Specialization)
	assert.Equal(t, []string{"Hindi", "English"}, profile.Languages)
	assert.False(t, profile.Verified)

	clientTok := e.token(t, client)

	// Непроверенный профиль в каталоге не виден.
	rec = e.do(t, http.MethodGet, "/providers?q=family", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]profileResponse](t, rec))
	assertError(t, e.do(t, http.MethodGet, "/providers?verified_only=false", clientTok, nil), http.StatusForbidden, "forbidden")
	assertError(t, e.do(t, http.MethodGet, "/providers?fee=cheap", clientTok, nil), http.StatusBadRequest, "validation_error")

	rec = e.do(t, http.MethodGet, "/providers?q=family&verified_only=false", coordTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]profileResponse](t, rec), 1)

	assertError(t, e.do(t, http.MethodGet, "/providers/unverified", providerTok, nil), http.StatusForbidden, "forbidden")
	rec = e.do(t, http.MethodGet, "/providers/unverified", coordTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]profileResponse](t, rec), 1)

	rec = e.do(t, http.MethodPost, "/providers/"+provider.ID.String()+"/verify", coordTok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[profileResponse](t, rec).Verified)

	rec = e.do(t, http.MethodGet, "/providers?q=family", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]profileResponse](t, rec), 1)
	rec = e.do(t, http.MethodGet, "/providers?fee=%E2%82%B9500-1500", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]profileResponse](t, rec))
	rec = e.do(t, http.MethodGet, "/providers?fee=1500-3000", clientTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]profileResponse](t, rec), 1)

	falseVal := false
	rec = e.do(t, http.MethodPost, "/providers/"+provider.ID.String()+"/verify", coordTok, verifyRequest{Verified: &falseVal})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[profileResponse](t, rec).Verified)

	assertError(t, e.do(t, http.MethodPost, "/providers/"+uuid.NewString()+"/verify", coordTok, nil), http.StatusNotFound, "not_found")

	rec = e.do(t, http.MethodGet, "/providers/me/clients", providerTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]identityResponse](t, rec))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer  ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
