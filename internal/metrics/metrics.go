package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
)

var (
	rpcInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medequip_grpc_in_flight_requests",
		Help: "In-flight gRPC requests.",
	})

	rpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medequip_grpc_requests_total",
			Help: "Total number of gRPC requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medequip_grpc_request_duration_seconds",
			Help:    "gRPC request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	serviceRequestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medequip_service_request_transitions_total",
			Help: "Applied service request status transitions.",
		},
		[]string{"from", "to"},
	)

	quoteAcceptConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medequip_quote_accept_conflicts_total",
		Help: "Quote acceptances rejected because the request already accepted a quote.",
	})

	auditEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medequip_audit_entries_total",
			Help: "Audit entries written, by action.",
		},
		[]string{"action"},
	)

	quotesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medequip_quotes_expired_total",
		Help: "Pending quotes moved to expired by the scheduler.",
	})

	bottlenecks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medequip_bottleneck_service_requests",
		Help: "Non-terminal service requests unchanged for more than seven days, as of the last report.",
	})

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medequip_rate_limited_requests_total",
			Help: "Requests rejected by the per-caller rate limiter.",
		},
		[]string{"method"},
	)
)

var initOnce sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			rpcInFlight, rpcRequestsTotal, rpcDuration,
			serviceRequestTransitions, quoteAcceptConflicts, auditEntries,
			quotesExpired, bottlenecks, rateLimited,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RPCStarted marks a call in flight and returns the func that records its outcome.
func RPCStarted(method string) func(code codes.Code) {
	rpcInFlight.Inc()
	start := time.Now()
	return func(code codes.Code) {
		rpcInFlight.Dec()
		rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		rpcRequestsTotal.WithLabelValues(method, code.String()).Inc()
	}
}

func ServiceRequestTransition(from, to string) {
	serviceRequestTransitions.WithLabelValues(from, to).Inc()
}

func QuoteAcceptConflict() { quoteAcceptConflicts.Inc() }

func AuditEntry(action string) { auditEntries.WithLabelValues(action).Inc() }

func QuotesExpired(n int) { quotesExpired.Add(float64(n)) }

func Bottlenecks(n int) { bottlenecks.Set(float64(n)) }

func RateLimited(method string) { rateLimited.WithLabelValues(method).Inc() }
