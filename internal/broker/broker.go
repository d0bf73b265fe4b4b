// Package broker wires the connection state machine (internal/amqpserver) to
// the shared broker state (internal/storage) and routing engine
// (internal/routing). It is the "server hooks" implementation the design
// notes in spec.md §9 call for: the connection owns no business logic, this
// package supplies every side effect.
package broker

import (
	"context"
	"log/slog"
	"net"

	"amqpmock/internal/amqpframe"
	"amqpmock/internal/amqpserver"
	"amqpmock/internal/message"
	"amqpmock/internal/metrics"
	"amqpmock/internal/routing"
	"amqpmock/internal/storage"
)

// Broker implements amqpserver.Hooks by delegating every callback to the
// shared Storage and Engine it was constructed with.
type Broker struct {
	storage *storage.Storage
	routing *routing.Engine

	// serverProperties is advertised on every Connection.Start (spec §4.2 state 1).
	serverProperties amqpframe.Table
}

// New returns a Broker backed by s and r, advertising the given server
// properties in Connection.Start.
func New(s *storage.Storage, r *routing.Engine, serverProperties amqpframe.Table) *Broker {
	return &Broker{storage: s, routing: r, serverProperties: serverProperties}
}

var _ amqpserver.Hooks = (*Broker)(nil)

// NewAMQPConnection wraps conn in an amqpserver.Connection bound to this
// broker's hooks. Exported so the acceptor (and tests driving raw sockets)
// can construct connections without reaching into amqpserver directly.
// ConnectionsOpen is incremented here, at accept time, so it is balanced by
// OnClose even for a socket that is torn down before completing the AMQP
// handshake (spec §4.6 expansion: "incremented on accept").
func (b *Broker) NewAMQPConnection(conn net.Conn) *amqpserver.Connection {
	metrics.ConnectionsOpen.Inc()
	return amqpserver.NewConnection(conn, b, b.serverProperties)
}

func (b *Broker) DeclareExchange(name string, kind storage.ExchangeType) {
	b.storage.DeclareExchange(name, kind)
}

func (b *Broker) DeclareQueue(name string) {
	b.storage.DeclareQueue(name)
}

func (b *Broker) Bind(queue, exchange, routingKey string) {
	b.storage.Bind(queue, exchange, routingKey)
}

// Publish routes msg through the exchange it was published to, per spec §4.3.
func (b *Broker) Publish(msg *message.Message) {
	b.routing.Publish(msg)
}

// Next blocks for the next message on queue; storage.Next already performs
// the INIT -> CONSUMING history transition before returning it (spec §4.5
// step 1).
func (b *Broker) Next(ctx context.Context, queue string) (*message.Message, bool) {
	return b.storage.Next(ctx, queue)
}

func (b *Broker) Ack(queue, messageID string) {
	b.storage.SetStatus(queue, messageID, message.StatusAcked)
}

func (b *Broker) Nack(queue, messageID string) {
	b.storage.SetStatus(queue, messageID, message.StatusNacked)
}

func (b *Broker) OnOpen(conn *amqpserver.Connection) {
	slog.Info("amqp connection opened", "component", "broker", "remote", conn.RemoteAddr())
}

func (b *Broker) OnClose(conn *amqpserver.Connection) {
	metrics.ConnectionsOpen.Dec()
	slog.Info("amqp connection closed", "component", "broker", "remote", conn.RemoteAddr())
}
