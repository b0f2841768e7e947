package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenancy and payment modules.
type Metrics struct {
	// Proposal outcomes: accepted into pending, or rejected by code
	ProposalsTotal *prometheus.CounterVec

	// Agreement state transitions by kind (accepted, declined, terminated, expired)
	TransitionsTotal *prometheus.CounterVec

	// Obligation confirmations by source ("tenant", "landlord")
	ConfirmationsTotal *prometheus.CounterVec

	// Full propose latency including schedule generation and persistence
	ProposeLatency prometheus.Histogram

	// Validity summary computation latency
	SummaryLatency prometheus.Histogram
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		ProposalsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_proposals_total",
			Help: "Total tenancy proposals by outcome",
		}, []string{"outcome"}), // outcome: "created", "validation", "conflict", "error"

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_agreement_transitions_total",
			Help: "Total agreement state transitions by kind",
		}, []string{"transition"}),

		ConfirmationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rentledger_obligation_confirmations_total",
			Help: "Total obligation confirmation events by source",
		}, []string{"source"}),

		ProposeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_propose_duration_seconds",
			Help:    "Duration of full proposal handling including schedule generation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		SummaryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_summary_duration_seconds",
			Help:    "Duration of validity/arrears summary computation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementProposal records a proposal outcome.
func (m *Metrics) IncrementProposal(outcome string) {
	if m != nil {
		m.ProposalsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncrementTransition records an agreement state transition.
func (m *Metrics) IncrementTransition(transition string) {
	if m != nil {
		m.TransitionsTotal.WithLabelValues(transition).Inc()
	}
}

// IncrementConfirmation records an obligation confirmation event.
func (m *Metrics) IncrementConfirmation(source string) {
	if m != nil {
		m.ConfirmationsTotal.WithLabelValues(source).Inc()
	}
}

// ObserveProposeLatency records the duration of a proposal.
func (m *Metrics) ObserveProposeLatency(d time.Duration) {
	if m != nil {
		m.ProposeLatency.Observe(d.Seconds())
	}
}

// ObserveSummaryLatency records the duration of a summary computation.
func (m *Metrics) ObserveSummaryLatency(d time.Duration) {
	if m != nil {
		m.SummaryLatency.Observe(d.Seconds())
	}
}
