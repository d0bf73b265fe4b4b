// Package routing implements the broker-side routing engine: given an
// exchange and a published Message, it decides which queues receive a copy
// and records the delivery-lifecycle history for each.
package routing

import (
	"amqpmock/internal/message"
	"amqpmock/internal/metrics"
	"amqpmock/internal/storage"
)

// Engine routes published messages through a Storage instance.
type Engine struct {
	storage *storage.Storage
}

// New returns a routing Engine backed by s.
func New(s *storage.Storage) *Engine {
	return &Engine{storage: s}
}

// Publish records msg in exchange's published-log (unconditionally, per
// invariant I4) and enqueues a copy into every queue the exchange's bindings
// resolve to for msg.RoutingKey. It returns the queues msg was actually
// routed to, in delivery order.
func (e *Engine) Publish(msg *message.Message) []string {
	e.storage.PublishToExchangeLog(msg.Exchange, msg)
	metrics.MessagesPublished.WithLabelValues(msg.Exchange).Inc()

	queues := e.storage.MatchQueues(msg.Exchange, msg.RoutingKey)
	routed := make([]string, 0, len(queues))
	for _, q := range queues {
		e.storage.EnqueueToQueue(q, msg.Clone())
		metrics.MessagesRouted.WithLabelValues(msg.Exchange, q).Inc()
		routed = append(routed, q)
	}
	return routed
}
