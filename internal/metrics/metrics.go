// Package metrics exposes the broker's Prometheus instrumentation points.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConnectionsOpen tracks how many AMQP client sockets are currently accepted.
var ConnectionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "amqpmock_connections_open",
	Help: "Number of currently open AMQP connections",
})

// MessagesPublished counts every publish accepted onto an exchange's log,
// labeled by exchange, regardless of whether it routed anywhere.
var MessagesPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqpmock_messages_published_total",
		Help: "Total messages published to an exchange",
	},
	[]string{"exchange"},
)

// MessagesRouted counts messages actually enqueued to a queue, labeled by
// exchange and queue so fanout vs direct routing volume is distinguishable.
var MessagesRouted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqpmock_messages_routed_total",
		Help: "Total messages routed into a queue",
	},
	[]string{"exchange", "queue"},
)

// DeliveryDuration measures time from enqueue to a consumer picking the
// message up off the queue.
var DeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "amqpmock_delivery_duration_seconds",
	Help:    "Time between a message being queued and delivered to a consumer",
	Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
})

// HistorySize reports the current size of the delivery-lifecycle history log.
var HistorySize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "amqpmock_history_size",
	Help: "Current number of delivery-lifecycle history records",
})
