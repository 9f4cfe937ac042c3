package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	CasesCreated        prometheus.Counter
	CasesAssigned       prometheus.Counter
	AssignConflicts     prometheus.Counter
	ConsultationsBooked prometheus.Counter
	ProfilesProvisioned prometheus.Counter
	MessagesSent        prometheus.Counter
	StatusChanges       *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on reg.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CasesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_cases_created_total",
			Help: "Total number of cases posted by clients",
		}),
		CasesAssigned: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_cases_assigned_total",
			Help: "Total number of cases taken by providers",
		}),
		AssignConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_case_assign_conflicts_total",
			Help: "Assignment attempts that lost the race or hit an already assigned case",
		}),
		ConsultationsBooked: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_consultations_booked_total",
			Help: "Total number of consultations scheduled",
		}),
		ProfilesProvisioned: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_provider_profiles_provisioned_total",
			Help: "Provider profiles created implicitly while scheduling",
		}),
		MessagesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "legalaid_messages_sent_total",
			Help: "Direct messages and workflow notices delivered",
		}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "legalaid_status_changes_total",
			Help: "Status writes by entity and target status",
		}, []string{"entity", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legalaid_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// IncStatusChange records a status write for entity ("case" or "consultation").
func (m *Metrics) IncStatusChange(entity, status string) {
	m.StatusChanges.WithLabelValues(entity, status).Inc()
}

// ObserveRequest records one HTTP request latency in seconds.
func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
