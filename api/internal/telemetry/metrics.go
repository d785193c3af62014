package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus instruments for the API. Only field NAMES and
// outcomes are ever used as label values, never field contents.
type Metrics struct {
	ProtectRequests  *prometheus.CounterVec
	FieldsEncrypted  *prometheus.CounterVec
	ReferralsTracked prometheus.Counter
	MailsSent        *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ProtectRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rebooked_protect_requests_total",
			Help: "Banking protection requests by outcome (updated, noop, error).",
		}, []string{"outcome"}),
		FieldsEncrypted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rebooked_fields_encrypted_total",
			Help: "Sensitive fields envelope-encrypted, by field name.",
		}, []string{"field"}),
		ReferralsTracked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rebooked_referrals_tracked_total",
			Help: "Affiliate referrals successfully recorded.",
		}),
		MailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rebooked_mails_sent_total",
			Help: "Transactional emails handed to the provider, by kind.",
		}, []string{"kind"}),
	}
}

// ObserveProtection records one protection request and its encrypted fields.
// Nil receivers are tolerated so handler tests can run without a registry.
func (m *Metrics) ObserveProtection(outcome string, fields []string) {
	if m == nil {
		return
	}
	m.ProtectRequests.WithLabelValues(outcome).Inc()
	for _, f := range fields {
		m.FieldsEncrypted.WithLabelValues(f).Inc()
	}
}

func (m *Metrics) ObserveReferral() {
	if m == nil {
		return
	}
	m.ReferralsTracked.Inc()
}

func (m *Metrics) ObserveMail(kind string) {
	if m == nil {
		return
	}
	m.MailsSent.WithLabelValues(kind).Inc()
}
