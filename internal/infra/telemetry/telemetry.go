package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the verification and voting flows.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsAbandoned prometheus.Counter
	BiometricAttempts *prometheus.CounterVec
	OTPCodesIssued    prometheus.Counter
	OTPValidations    *prometheus.CounterVec
	Authentications   *prometheus.CounterVec
	VotesCommitted    prometheus.Counter
	CommitFailures    *prometheus.CounterVec
	CommitDuration    prometheus.Histogram
}

// NewMetrics registers flow collectors with the provided registerer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of verification sessions started.",
		}),
		SessionsAbandoned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "session",
			Name:      "abandoned_total",
			Help:      "Total number of sessions abandoned before commit.",
		}),
		BiometricAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "biometric",
			Name:      "attempts_total",
			Help:      "Biometric scan attempts partitioned by outcome.",
		}, []string{"outcome"}),
		OTPCodesIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "otp",
			Name:      "issued_total",
			Help:      "One-time codes issued, including resends.",
		}),
		OTPValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "otp",
			Name:      "validations_total",
			Help:      "OTP validation attempts partitioned by outcome.",
		}, []string{"outcome"}),
		Authentications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "auth",
			Name:      "completed_total",
			Help:      "Completed authentications partitioned by method.",
		}, []string{"method"}),
		VotesCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "vote",
			Name:      "committed_total",
			Help:      "Votes accepted by the ledger.",
		}),
		CommitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evote",
			Subsystem: "vote",
			Name:      "commit_failures_total",
			Help:      "Commit failures partitioned by reason.",
		}, []string{"reason"}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evote",
			Subsystem: "vote",
			Name:      "commit_duration_seconds",
			Help:      "Latency of ledger commit round trips.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	return m, nil
}

// SessionStarted counts one opened verification session.
func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
}

// SessionAbandoned counts one abandoned session.
func (m *Metrics) SessionAbandoned() {
	m.SessionsAbandoned.Inc()
}

// BiometricAttempt counts one scan attempt by outcome.
func (m *Metrics) BiometricAttempt(outcome string) {
	m.BiometricAttempts.WithLabelValues(outcome).Inc()
}

// OTPIssued counts one issued code, resends included.
func (m *Metrics) OTPIssued() {
	m.OTPCodesIssued.Inc()
}

// OTPValidation counts one validation attempt by outcome.
func (m *Metrics) OTPValidation(outcome string) {
	m.OTPValidations.WithLabelValues(outcome).Inc()
}

// Authenticated counts one completed authentication by method.
func (m *Metrics) Authenticated(method string) {
	m.Authentications.WithLabelValues(method).Inc()
}

// VoteCommitted counts one accepted vote and observes the commit latency.
func (m *Metrics) VoteCommitted(duration time.Duration) {
	m.VotesCommitted.Inc()
	m.CommitDuration.Observe(duration.Seconds())
}

// CommitFailed counts one rejected or failed commit by reason.
func (m *Metrics) CommitFailed(reason string) {
	m.CommitFailures.WithLabelValues(reason).Inc()
}

// MustNewMetrics is NewMetrics that panics on registration conflicts;
// collectors are registered once at startup.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(fmt.Sprintf("register telemetry collectors: %v", err))
	}
	return m
}
