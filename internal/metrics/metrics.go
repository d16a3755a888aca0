// Package metrics содержит prometheus метрики приложения. Метрики регистрируются в
// prometheus.DefaultRegisterer и отдаются обработчиком /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guestmart"

var LedgerEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "entries_total",
	Help:      "Balance ledger rows written, by balance type and transaction type.",
}, []string{"balance_type", "type"})

var LedgerAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "amount_cents_total",
	Help:      "Absolute amount moved through the ledger in cents.",
}, []string{"balance_type", "type"})

var InsufficientFunds = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "insufficient_funds_total",
	Help:      "Debits rejected because the balance was too low.",
}, []string{"balance_type"})

var OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "orders",
	Name:      "created_total",
	Help:      "Orders created, by order type and whether they were paid from the wallet.",
}, []string{"order_type", "paid"})

var OrderNumberCollisions = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "orders",
	Name:      "number_collisions_total",
	Help:      "Order creation attempts retried because of an order number collision.",
})

var OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "orders",
	Name:      "transitions_total",
	Help:      "Order status transitions.",
}, []string{"from", "to"})

var AutoApproved = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "orders",
	Name:      "auto_approved_total",
	Help:      "Orders processed by the auto-approve sweep.",
}, []string{"result"})

var PayoutRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "payouts",
	Name:      "requests_total",
	Help:      "Payout requests, by method and result.",
}, []string{"method", "result"})

var MailSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mailer",
	Name:      "sent_total",
	Help:      "Emails handed to the provider, by kind and result.",
}, []string{"kind", "result"})

var MailQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "mailer",
	Name:      "queue_depth",
	Help:      "Emails waiting in the dispatcher queue.",
})

var MailDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "mailer",
	Name:      "dropped_total",
	Help:      "Emails dropped because the dispatcher queue was full.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

var APIRateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "api",
	Name:      "rate_limited_total",
	Help:      "Public API requests rejected by the per-key rate limit.",
})
