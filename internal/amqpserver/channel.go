package amqpserver

import (
	"context"
	"sync"

	"amqpmock/internal/message"
)

// channel holds the per-channel state described in spec §4.2: the tx-mode
// flag, the consumer table, and the pending inbound-publish assembly slot.
// Confirm mode has no observable effect beyond acking ConfirmSelectOk (the
// connection acks every publish outside tx mode regardless), so it is not
// tracked as state here.
type channel struct {
	id       uint16
	txMode   bool
	txBuffer []*message.Message

	incoming         *message.Message
	incomingSize     uint64
	incomingReceived uint64
	incomingBody     []byte

	mu        sync.Mutex
	consumers map[string]*consumer
}

func newChannel(id uint16) *channel {
	return &channel{id: id, consumers: make(map[string]*consumer)}
}

// consumer is one active Basic.Consume subscription's delivery task.
type consumer struct {
	tag    string
	queue  string
	cancel context.CancelFunc
	done   chan struct{}
}

func (ch *channel) addConsumer(c *consumer) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.consumers[c.tag] = c
}

func (ch *channel) takeConsumer(tag string) (*consumer, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	c, ok := ch.consumers[tag]
	if ok {
		delete(ch.consumers, tag)
	}
	return c, ok
}

func (ch *channel) allConsumers() []*consumer {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]*consumer, 0, len(ch.consumers))
	for _, c := range ch.consumers {
		out = append(out, c)
	}
	ch.consumers = make(map[string]*consumer)
	return out
}

// beginPublish resets the inbound-publish assembly slot for a new Basic.Publish.
func (ch *channel) beginPublish(exchange, routingKey string) {
	ch.incoming = &message.Message{Exchange: exchange, RoutingKey: routingKey}
	ch.incomingSize = 0
	ch.incomingReceived = 0
	ch.incomingBody = nil
}
