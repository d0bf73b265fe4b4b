// Package message defines the data the broker moves around: the Message
// published by a client and the QueuedMessage record that tracks one message's
// delivery lifecycle inside a single queue.
package message

import (
	"github.com/google/uuid"
)

// Status is a QueuedMessage's position in its delivery lifecycle.
type Status string

const (
	StatusInit      Status = "INIT"
	StatusConsuming Status = "CONSUMING"
	StatusAcked     Status = "ACKED"
	StatusNacked    Status = "NACKED"
)

// Message is a single published payload, addressed by exchange and routing key.
type Message struct {
	ID         string      `json:"id"`
	Value      any         `json:"value"`
	Exchange   string      `json:"exchange"`
	RoutingKey string      `json:"routing_key"`
	Properties Properties  `json:"properties"`
}

// Properties mirrors a subset of AMQP basic-properties, e.g. content_type.
type Properties map[string]any

// New builds a Message, assigning a UUID when id is empty.
func New(value any, id, exchange, routingKey string, properties Properties) *Message {
	if id == "" {
		id = uuid.New().String()
	}
	return &Message{
		ID:         id,
		Value:      value,
		Exchange:   exchange,
		RoutingKey: routingKey,
		Properties: properties,
	}
}

// EnsureID assigns a UUID if the message has none yet, e.g. right before its
// first enqueue.
func (m *Message) EnsureID() {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
}

// Clone returns a shallow copy so the same logical publish can be fanned out
// to multiple queues without one queue's history mutation leaking state into
// another's underlying struct.
func (m *Message) Clone() *Message {
	cp := *m
	return &cp
}

// QueuedMessage pairs a Message with the queue it was enqueued into and its
// current lifecycle status.
type QueuedMessage struct {
	Message *Message `json:"message"`
	Queue   string   `json:"queue"`
	Status  Status   `json:"status"`
}
