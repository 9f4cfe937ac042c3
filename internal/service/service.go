package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Leganyst/legal-marketplace/internal/metrics"
	"github.com/Leganyst/legal-marketplace/internal/repository"
)

const (
	defaultQueryTimeout = 5 * time.Second
	defaultPastWindow   = 90 * 24 * time.Hour
)

// Options configures the service layer. Zero values fall back to defaults.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Now     func() time.Time

	// QueryTimeout bounds every store call made by one operation.
	QueryTimeout time.Duration
	// PastConsultationWindow caps how far back "past" listings reach.
	PastConsultationWindow time.Duration
}

// Services wires every component over one store.
type Services struct {
	Identities    *IdentityService
	Providers     *ProviderService
	Cases         *CaseService
	Consultations *ConsultationService
	Messaging     *MessagingService
	Orchestrator  *Orchestrator
}

func New(store *repository.Store, opts Options) *Services {
	b := newBase(store, opts)

	identities := NewIdentityService(store.Users, b.timeout)
	providers := &ProviderService{base: b}
	cases := &CaseService{base: b, providers: providers}
	consultations := &ConsultationService{base: b, providers: providers, pastWindow: opts.PastConsultationWindow}
	if consultations.pastWindow <= 0 {
		consultations.pastWindow = defaultPastWindow
	}
	messaging := &MessagingService{base: b, identities: identities}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/Leganyst/legal-marketplace/internal/service")
	}

	return &Services{
		Identities:    identities,
		Providers:     providers,
		Cases:         cases,
		Consultations: consultations,
		Messaging:     messaging,
		Orchestrator: &Orchestrator{
			base:          b,
			tracer:        tracer,
			cases:         cases,
			consultations: consultations,
			messaging:     messaging,
		},
	}
}

// base holds what every component shares.
type base struct {
	store   *repository.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	timeout time.Duration
}

func newBase(store *repository.Store, opts Options) base {
	b := base{
		store:   store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		timeout: opts.QueryTimeout,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.metrics == nil {
		b.metrics = metrics.New(prometheus.NewRegistry())
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	if b.timeout <= 0 {
		b.timeout = defaultQueryTimeout
	}
	return b
}

// withQueryTimeout derives the per-operation deadline for store calls.
func withQueryTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

func (b *base) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	return withQueryTimeout(parent, b.timeout)
}
