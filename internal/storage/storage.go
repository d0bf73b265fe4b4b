// Package storage implements the in-memory broker state: exchanges, queues,
// bindings and the delivery-lifecycle history log. It is shared, process-wide,
// by the AMQP connections and the HTTP control handlers; unlike the Python
// original (single-threaded cooperative scheduler, no locks needed) a Go
// process schedules goroutines preemptively across real OS threads, so every
// exported method here takes a single mutex for its whole body, except Next,
// which releases it while it waits for a message.
package storage

import (
	"context"
	"sync"
	"time"

	"amqpmock/internal/message"
	"amqpmock/internal/metrics"
)

// ExchangeType is the routing behavior of an exchange.
type ExchangeType string

const (
	ExchangeDirect  ExchangeType = "direct"
	ExchangeFanout  ExchangeType = "fanout"
	DefaultExchange              = ""
)

type exchange struct {
	kind ExchangeType
	log  []*message.Message // newest first
	// bindings maps routing_key -> queue name, used for direct/default
	// matching. A real client binding multiple queues to a fanout exchange
	// conventionally uses the same routing key (often "") for every bind, so
	// this map alone cannot represent a fanout's full target set: a second
	// bind at the same key would silently overwrite the first.
	bindings map[string]string
	// bindOrder records the order in which routing keys were first bound in
	// bindings. Routing does not read it: direct matching is a map lookup.
	bindOrder []string
	// boundQueues is the deduplicated, insertion-ordered set of every queue
	// ever bound to this exchange regardless of routing key. Fanout delivery
	// (spec §4.3: "deliver to every queue in the exchange's bindings map")
	// reads from this set instead of bindings, so two queues bound at the
	// same key (e.g. both at "") are independently tracked.
	boundQueues   []string
	boundQueueSet map[string]bool
}

type queueState struct {
	fifo []*message.Message // append at tail, pop from head
	// wake is closed (and replaced) every time a message is pushed, so a
	// goroutine blocked in Next wakes up to re-check the FIFO. This is the Go
	// equivalent of the source's async generator suspending until the next
	// enqueue (spec §4.4's "lazy stream of Message").
	wake chan struct{}
}

func newQueueState() *queueState {
	return &queueState{wake: make(chan struct{})}
}

// Storage is the single process-wide broker state container.
type Storage struct {
	mu        sync.RWMutex
	exchanges map[string]*exchange
	queues    map[string]*queueState
	history   []*message.QueuedMessage // append order; newest appended last

	// enqueuedAt records when each in-flight message was pushed onto its
	// queue's FIFO; observeDelivery reads and removes the entry when the
	// message is popped. It exists purely for the
	// amqpmock_delivery_duration_seconds histogram and carries no protocol
	// meaning.
	enqueuedAt map[*message.Message]time.Time
}

// New returns an empty Storage with the implicit default exchange declared.
func New() *Storage {
	s := &Storage{
		exchanges:  make(map[string]*exchange),
		queues:     make(map[string]*queueState),
		enqueuedAt: make(map[*message.Message]time.Time),
	}
	s.exchanges[DefaultExchange] = &exchange{kind: ExchangeDirect, bindings: map[string]string{}}
	return s
}

// Clear resets all exchanges, queues, bindings and history.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = map[string]*exchange{DefaultExchange: {kind: ExchangeDirect, bindings: map[string]string{}}}
	s.queues = make(map[string]*queueState)
	s.history = nil
	s.enqueuedAt = make(map[*message.Message]time.Time)
	metrics.HistorySize.Set(0)
}

// DeclareExchange creates an exchange if absent. Idempotent: redeclaring an
// existing exchange never clears it (invariant I5).
func (s *Storage) DeclareExchange(name string, kind ExchangeType) {
	if kind == "" {
		kind = ExchangeDirect
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareExchangeLocked(name, kind)
}

func (s *Storage) declareExchangeLocked(name string, kind ExchangeType) *exchange {
	if ex, ok := s.exchanges[name]; ok {
		return ex
	}
	ex := &exchange{kind: kind, bindings: map[string]string{}}
	s.exchanges[name] = ex
	return ex
}

// DeclareQueue creates a queue if absent and binds it to the default exchange
// under its own name (spec: "A queue declared with name Q creates an implicit
// binding on the default exchange with routing_key=Q -> Q"). Idempotent.
func (s *Storage) DeclareQueue(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareQueueLocked(name)
}

func (s *Storage) declareQueueLocked(name string) {
	if _, ok := s.queues[name]; !ok {
		s.queues[name] = newQueueState()
	}
	def := s.exchanges[DefaultExchange]
	s.bindLocked(def, name, name)
}

// Bind upserts bindings[exchange][routingKey] = queue. Implicitly declares
// both the exchange (direct, if new) and the queue.
func (s *Storage) Bind(queue, exchangeName, routingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declareQueueLocked(queue)
	ex := s.declareExchangeLocked(exchangeName, ExchangeDirect)
	s.bindLocked(ex, routingKey, queue)
}

func (s *Storage) bindLocked(ex *exchange, routingKey, queue string) {
	if _, exists := ex.bindings[routingKey]; !exists {
		ex.bindOrder = append(ex.bindOrder, routingKey)
	}
	ex.bindings[routingKey] = queue

	if ex.boundQueueSet == nil {
		ex.boundQueueSet = make(map[string]bool)
	}
	if !ex.boundQueueSet[queue] {
		ex.boundQueueSet[queue] = true
		ex.boundQueues = append(ex.boundQueues, queue)
	}
}

// ExchangeType reports the declared type of an exchange, defaulting to direct
// for an exchange that has never been declared (spec: "other types ... must
// not crash").
func (s *Storage) ExchangeType(name string) ExchangeType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ex, ok := s.exchanges[name]; ok {
		return ex.kind
	}
	return ExchangeDirect
}

// MatchQueues returns, for a publish to exchange/routingKey, the ordered list
// of queues it routes to under direct/fanout/default semantics (spec §4.3).
// Unknown or other exchange types return nil without error.
func (s *Storage) MatchQueues(exchangeName, routingKey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exchanges[exchangeName]
	if !ok {
		return nil
	}
	switch ex.kind {
	case ExchangeFanout:
		queues := make([]string, len(ex.boundQueues))
		copy(queues, ex.boundQueues)
		return queues
	case ExchangeDirect:
		if q, ok := ex.bindings[routingKey]; ok {
			return []string{q}
		}
		return nil
	default:
		return nil
	}
}

// PublishToExchangeLog unconditionally prepends message to the exchange's
// published-log (invariant I4), declaring the exchange as direct if new.
func (s *Storage) PublishToExchangeLog(exchangeName string, msg *message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex := s.declareExchangeLocked(exchangeName, ExchangeDirect)
	ex.log = append([]*message.Message{msg}, ex.log...)
}

// EnqueueToQueue pushes a message to a queue's FIFO tail and appends a new
// INIT history record for the (message, queue) pair. Implicitly declares the
// queue if it does not exist yet.
func (s *Storage) EnqueueToQueue(queue string, msg *message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[queue]
	if !ok {
		q = newQueueState()
		s.queues[queue] = q
	}
	q.fifo = append(q.fifo, msg)
	s.history = append(s.history, &message.QueuedMessage{
		Message: msg,
		Queue:   queue,
		Status:  message.StatusInit,
	})
	s.enqueuedAt[msg] = time.Now()
	metrics.HistorySize.Set(float64(len(s.history)))
	close(q.wake)
	q.wake = make(chan struct{})
}

// DequeueNext pops the oldest pending message for queue, or ok=false if the
// queue is empty or unknown.
func (s *Storage) DequeueNext(queue string) (*message.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[queue]
	if !ok || len(q.fifo) == 0 {
		return nil, false
	}
	msg := q.fifo[0]
	q.fifo = q.fifo[1:]
	s.observeDelivery(msg)
	return msg, true
}

// observeDelivery records the delivery_duration_seconds histogram for a
// message just popped off a queue's FIFO, in the manner of the teacher's
// internal/database.DB wrapping a query in a prometheus.Timer.
func (s *Storage) observeDelivery(msg *message.Message) {
	if at, ok := s.enqueuedAt[msg]; ok {
		metrics.DeliveryDuration.Observe(time.Since(at).Seconds())
		delete(s.enqueuedAt, msg)
	}
}

// Next blocks until a message is available on queue, ctx is cancelled, or the
// queue is explicitly woken with no data (spurious wake, loop retries). It is
// the blocking primitive behind the delivery loop's "lazy stream of Message"
// (spec §4.4/§9): the routing engine is the producer, this is the consumer.
// The popped message's history record transitions INIT -> CONSUMING before
// Next returns (spec §4.5 step 1), so the delivery loop never has to reach
// back into storage itself.
func (s *Storage) Next(ctx context.Context, queue string) (*message.Message, bool) {
	for {
		s.mu.Lock()
		q, ok := s.queues[queue]
		if !ok {
			q = newQueueState()
			s.queues[queue] = q
		}
		if len(q.fifo) > 0 {
			msg := q.fifo[0]
			q.fifo = q.fifo[1:]
			s.observeDelivery(msg)
			s.setStatusLocked(queue, msg.ID, message.StatusConsuming)
			s.mu.Unlock()
			return msg, true
		}
		wake := q.wake
		s.mu.Unlock()

		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return nil, false
		}
	}
}

// ListExchangeMessages returns the exchange's published-log, newest first.
func (s *Storage) ListExchangeMessages(exchangeName string) []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ex, ok := s.exchanges[exchangeName]
	if !ok {
		return []*message.Message{}
	}
	out := make([]*message.Message, len(ex.log))
	copy(out, ex.log)
	return out
}

// DeleteExchangeMessages clears only the named exchange's published-log.
func (s *Storage) DeleteExchangeMessages(exchangeName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex, ok := s.exchanges[exchangeName]; ok {
		ex.log = nil
	}
}

// History returns every enqueue-event record, newest first.
func (s *Storage) History() []message.QueuedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]message.QueuedMessage, len(s.history))
	for i, qm := range s.history {
		out[len(s.history)-1-i] = *qm
	}
	return out
}

// SetStatus updates the history record for the (queue, messageID) pair this
// delivery tag was actually issued against. Updating only that one record
// (rather than every history entry sharing the id, as the Python original
// does) keeps fanout ack/nack precise: acking a delivery on queue q1 must not
// also flip the status of the sibling copy enqueued to q2.
func (s *Storage) SetStatus(queue, messageID string, status message.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatusLocked(queue, messageID, status)
}

func (s *Storage) setStatusLocked(queue, messageID string, status message.Status) {
	for _, qm := range s.history {
		if qm.Queue == queue && qm.Message.ID == messageID {
			qm.Status = status
			return
		}
	}
}

// HistorySize reports the current number of history records, for metrics.
func (s *Storage) HistorySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Snapshot is a point-in-time count of broker state, used by the optional
// stats logger.
type Snapshot struct {
	Exchanges int
	Queues    int
	History   int
}

// Stats returns a Snapshot of the current storage state.
func (s *Storage) Stats() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Exchanges: len(s.exchanges),
		Queues:    len(s.queues),
		History:   len(s.history),
	}
}
