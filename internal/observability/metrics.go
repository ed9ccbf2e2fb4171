package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "code"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	ordersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders recorded in the ledger.",
		},
	)
	ordersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Orders that were not recorded, by reason.",
		},
		[]string{"reason"},
	)
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification attempts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Time spent delivering one notification, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

// NewMetricsMiddleware Creates HTTP middleware for collecting Prometheus metrics.
func NewMetricsMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				duration := time.Since(start)
				path := routePattern(r)

				httpRequestDuration.WithLabelValues(serviceName, r.Method, path).Observe(duration.Seconds())
				httpRequestsTotal.WithLabelValues(serviceName, r.Method, path, strconv.Itoa(ww.Status())).Inc()
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// routePattern keeps label cardinality bounded by using the matched chi
// route instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// OrderPlaced counts an order that reached the ledger.
func OrderPlaced() {
	ordersPlacedTotal.Inc()
}

// OrderRejected counts an order refused for reason ("validation", "ledger", ...).
func OrderRejected(reason string) {
	ordersRejectedTotal.WithLabelValues(reason).Inc()
}

// NotificationObserved records one channel outcome ("sent" or "failed").
func NotificationObserved(channel, outcome string, took time.Duration) {
	notificationsTotal.WithLabelValues(channel, outcome).Inc()
	notificationDuration.WithLabelValues(channel).Observe(took.Seconds())
}
