package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefslot",
			Name:      "slot_searches_total",
			Help:      "Count of slot searches by outcome.",
		},
		[]string{"outcome"},
	)

	slotsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chefslot",
			Name:      "slots_returned",
			Help:      "Number of slots returned per searched date.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	mutationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefslot",
			Name:      "mutation_rejected_total",
			Help:      "Count of schedule and blocked-date mutations rejected by reason.",
		},
		[]string{"entity", "reason"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefslot",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "status"},
	)

	upstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chefslot",
			Name:      "upstream_errors_total",
			Help:      "Count of failed calls to external estimators.",
		},
		[]string{"service", "op"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chefslot",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of calls to external estimators.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotSearches, slotsReturned, mutationRejected, httpRequests, upstreamErrors, upstreamDuration)
	})
}

func IncSlotSearch(outcome string) {
	slotSearches.WithLabelValues(outcome).Inc()
}

func ObserveSlotsReturned(n int) {
	slotsReturned.Observe(float64(n))
}

func IncMutationRejected(entity, reason string) {
	mutationRejected.WithLabelValues(entity, reason).Inc()
}

func IncHTTP(route string, status int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func ObserveUpstream(service, op string, started time.Time, err error) {
	upstreamDuration.WithLabelValues(service, op).Observe(time.Since(started).Seconds())
	if err != nil {
		upstreamErrors.WithLabelValues(service, op).Inc()
	}
}
