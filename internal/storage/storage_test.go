package storage

import (
	"context"
	"testing"
	"time"

	"amqpmock/internal/message"
)

func TestDeclareQueueCreatesImplicitDefaultBinding(t *testing.T) {
	s := New()
	s.DeclareQueue("q")

	queues := s.MatchQueues(DefaultExchange, "q")
	if len(queues) != 1 || queues[0] != "q" {
		t.Fatalf("MatchQueues(default, q) = %v, want [q]", queues)
	}
	if queues := s.MatchQueues(DefaultExchange, "other"); len(queues) != 0 {
		t.Fatalf("MatchQueues(default, other) = %v, want none", queues)
	}
}

func TestDeclareExchangeIsIdempotent(t *testing.T) {
	s := New()
	s.DeclareExchange("ex", ExchangeFanout)
	msg := message.New("v1", "", "ex", "", nil)
	s.PublishToExchangeLog("ex", msg)

	s.DeclareExchange("ex", ExchangeDirect) // redeclare must not clear or retype

	if got := s.ExchangeType("ex"); got != ExchangeFanout {
		t.Fatalf("redeclare changed exchange type to %q", got)
	}
	if got := s.ListExchangeMessages("ex"); len(got) != 1 {
		t.Fatalf("redeclare cleared the exchange log: %v", got)
	}
}

func TestFanoutDeliversToEveryBoundQueueInBindOrder(t *testing.T) {
	s := New()
	s.DeclareExchange("fx", ExchangeFanout)
	s.Bind("q2", "fx", "")
	s.Bind("q1", "fx", "")

	queues := s.MatchQueues("fx", "ignored-routing-key")
	if len(queues) != 2 || queues[0] != "q2" || queues[1] != "q1" {
		t.Fatalf("fanout queues = %v, want [q2 q1] (bind order)", queues)
	}
}

func TestDirectRoutingMatchesExactRoutingKey(t *testing.T) {
	s := New()
	s.Bind("q", "ex", "rk")

	if got := s.MatchQueues("ex", "rk"); len(got) != 1 || got[0] != "q" {
		t.Fatalf("MatchQueues(ex, rk) = %v, want [q]", got)
	}
	if got := s.MatchQueues("ex", "other"); len(got) != 0 {
		t.Fatalf("MatchQueues(ex, other) = %v, want none", got)
	}
}

func TestPublishToExchangeLogRecordsEvenWithoutBindings(t *testing.T) {
	s := New()
	msg := message.New("v", "", "ex", "nowhere", nil)
	s.PublishToExchangeLog("ex", msg)

	log := s.ListExchangeMessages("ex")
	if len(log) != 1 {
		t.Fatalf("exchange log = %v, want 1 entry (invariant I4)", log)
	}
}

func TestExchangeLogIsNewestFirst(t *testing.T) {
	s := New()
	s.PublishToExchangeLog("ex", message.New("first", "m1", "ex", "", nil))
	s.PublishToExchangeLog("ex", message.New("second", "m2", "ex", "", nil))

	log := s.ListExchangeMessages("ex")
	if len(log) != 2 || log[0].ID != "m2" || log[1].ID != "m1" {
		t.Fatalf("log order = %v, want [m2 m1]", log)
	}
}

func TestDeleteExchangeMessagesOnlyClearsThatLog(t *testing.T) {
	s := New()
	s.DeclareQueue("q")
	s.PublishToExchangeLog("ex", message.New("v", "m1", "ex", "", nil))
	s.EnqueueToQueue("q", message.New("v", "m1", "", "q", nil))

	s.DeleteExchangeMessages("ex")

	if log := s.ListExchangeMessages("ex"); len(log) != 0 {
		t.Fatalf("exchange log not cleared: %v", log)
	}
	if hist := s.History(); len(hist) != 1 {
		t.Fatalf("unrelated history was touched: %v", hist)
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	s := New()
	s.EnqueueToQueue("q", message.New("a", "m1", "", "q", nil))
	s.EnqueueToQueue("q", message.New("b", "m2", "", "q", nil))

	m1, ok := s.DequeueNext("q")
	if !ok || m1.ID != "m1" {
		t.Fatalf("first dequeue = %v, ok=%v, want m1", m1, ok)
	}
	m2, ok := s.DequeueNext("q")
	if !ok || m2.ID != "m2" {
		t.Fatalf("second dequeue = %v, ok=%v, want m2", m2, ok)
	}
	if _, ok := s.DequeueNext("q"); ok {
		t.Fatal("dequeue on empty queue returned ok=true")
	}
}

func TestHistoryRecordsEnqueueOrderNewestFirst(t *testing.T) {
	s := New()
	s.EnqueueToQueue("q", message.New("a", "m1", "", "q", nil))
	s.EnqueueToQueue("q", message.New("b", "m2", "", "q", nil))

	hist := s.History()
	if len(hist) != 2 || hist[0].Message.ID != "m2" || hist[1].Message.ID != "m1" {
		t.Fatalf("history = %+v, want [m2 m1]", hist)
	}
	for _, qm := range hist {
		if qm.Status != message.StatusInit {
			t.Fatalf("freshly enqueued record has status %q, want INIT", qm.Status)
		}
	}
}

func TestSetStatusOnlyTouchesTheNamedQueueCopy(t *testing.T) {
	s := New()
	shared := message.New("v", "m1", "fx", "", nil)
	s.EnqueueToQueue("q1", shared.Clone())
	s.EnqueueToQueue("q2", shared.Clone())

	s.SetStatus("q1", "m1", message.StatusAcked)

	var q1Status, q2Status message.Status
	for _, qm := range s.History() {
		switch qm.Queue {
		case "q1":
			q1Status = qm.Status
		case "q2":
			q2Status = qm.Status
		}
	}
	if q1Status != message.StatusAcked {
		t.Fatalf("q1 status = %q, want ACKED", q1Status)
	}
	if q2Status != message.StatusInit {
		t.Fatalf("acking q1's copy also flipped q2's copy to %q", q2Status)
	}
}

func TestNextBlocksUntilEnqueueThenReturnsAndMarksConsuming(t *testing.T) {
	s := New()
	ctx := context.Background()

	done := make(chan *message.Message, 1)
	go func() {
		msg, ok := s.Next(ctx, "q")
		if !ok {
			done <- nil
			return
		}
		done <- msg
	}()

	time.Sleep(10 * time.Millisecond) // let the goroutine block on an empty queue
	s.EnqueueToQueue("q", message.New("v", "m1", "", "q", nil))

	select {
	case msg := <-done:
		if msg == nil || msg.ID != "m1" {
			t.Fatalf("Next returned %v, want m1", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("Next never returned after enqueue")
	}

	hist := s.History()
	if len(hist) != 1 || hist[0].Status != message.StatusConsuming {
		t.Fatalf("history after Next = %+v, want status CONSUMING", hist)
	}
}

func TestNextUnblocksOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := s.Next(ctx, "empty-queue")
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("Next returned ok=true after cancellation with no message")
		}
	case <-time.After(time.Second):
		t.Fatal("Next never unblocked on ctx cancel")
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New()
	s.DeclareExchange("ex", ExchangeFanout)
	s.Bind("q", "ex", "")
	s.EnqueueToQueue("q", message.New("v", "m1", "ex", "", nil))
	s.PublishToExchangeLog("ex", message.New("v", "m1", "ex", "", nil))

	s.Clear()

	if got := s.History(); len(got) != 0 {
		t.Fatalf("history after Clear = %v, want empty", got)
	}
	if got := s.ListExchangeMessages("ex"); len(got) != 0 {
		t.Fatalf("exchange log after Clear = %v, want empty", got)
	}
	if got := s.ExchangeType("ex"); got != ExchangeDirect {
		t.Fatalf("exchange type after Clear = %q, want default direct (exchange forgotten)", got)
	}
}
