package amqpserver

import (
	"context"

	"amqpmock/internal/message"
	"amqpmock/internal/storage"
)

// Hooks is the set of callback slots a Connection needs from whatever owns
// the broker state. broker.Broker implements this by delegating to storage and the
// routing engine; the connection itself carries no business logic (spec §9
// design note: "the connection owns no business logic").
type Hooks interface {
	DeclareExchange(name string, kind storage.ExchangeType)
	DeclareQueue(name string)
	Bind(queue, exchange, routingKey string)
	Publish(msg *message.Message)
	// Next blocks until a message is available for queue, marks its history
	// record CONSUMING, and returns it. ok is false only when ctx is done.
	Next(ctx context.Context, queue string) (msg *message.Message, ok bool)
	Ack(queue, messageID string)
	Nack(queue, messageID string)
	OnClose(conn *Connection)
	OnOpen(conn *Connection)
}
