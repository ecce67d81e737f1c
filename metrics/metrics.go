package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fuel_dispatch"

var (
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_created_total",
		Help:      "Service requests created, by kind and payment method.",
	}, []string{"kind", "payment_method"})

	AcceptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accepts_total",
		Help:      "Requests successfully claimed by a worker.",
	})

	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accept_conflicts_total",
		Help:      "Accept attempts that lost the claim race.",
	})

	AcceptsForbidden = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accepts_forbidden_total",
		Help:      "Accept attempts rejected by a precondition, by reason.",
	}, []string{"reason"})

	Reassignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "station_reassignments_total",
		Help:      "Mid-delivery station reassignments, by trigger.",
	}, []string{"trigger"})

	CodDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cod_denials_total",
		Help:      "COD eligibility denials, by reason.",
	}, []string{"reason"})

	QuotesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quotes_computed_total",
		Help:      "Price quotes computed.",
	})

	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Requests completed, by kind.",
	}, []string{"kind"})

	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Requests cancelled, by actor.",
	}, []string{"actor"})

	ExpiredRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_expired_total",
		Help:      "Pending requests cancelled by the expiry sweeper.",
	})

	ActiveMonitors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_monitors",
		Help:      "Deliveries currently under movement tracking.",
	})
)
