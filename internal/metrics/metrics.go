package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	// Cart / stock
	CartOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "Cart mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	StockConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_stock_conflicts_total",
			Help: "Reservations rejected because of insufficient stock",
		},
	)

	// Orders
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders created by payment method",
		},
		[]string{"payment_method"},
	)

	CheckoutSessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_created_total",
			Help: "Online checkout sessions created",
		},
	)

	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_orders_cancelled_total",
			Help: "Orders cancelled",
		},
	)

	OrderNumberCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_order_number_collisions_total",
			Help: "Order number unique violations that triggered regeneration",
		},
	)

	// Cleanup
	CartsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_idle_carts_released_total",
			Help: "Idle carts whose reservations were returned to stock",
		},
	)

	CheckoutSessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_checkout_sessions_expired_total",
			Help: "Pending checkout sessions marked expired",
		},
	)
)

func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordCartOperation(operation, result string) {
	CartOperations.WithLabelValues(operation, result).Inc()
}
