package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"amqpmock/internal/message"
	"amqpmock/internal/storage"
)

func newTestHandler() (*Handler, *http.ServeMux) {
	h := &Handler{Storage: storage.New()}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func doRequest(mux *http.ServeMux, method, path string, body []byte) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, r)
	return rr
}

func TestHealthcheckReturnsOK(t *testing.T) {
	_, mux := newTestHandler()
	rr := doRequest(mux, "GET", "/healthcheck", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "200 OK" {
		t.Fatalf("body = %q, want 200 OK", rr.Body.String())
	}
}

func TestPreloadQueueMessageThenHistoryReflectsIt(t *testing.T) {
	h, mux := newTestHandler()

	payload, _ := json.Marshal(preloadRequest{
		ID:         "m1",
		Value:      "hello",
		Exchange:   "ex",
		RoutingKey: "q",
	})
	rr := doRequest(mux, "POST", "/queues/q/messages", payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("preload status = %d, want 201, body=%s", rr.Code, rr.Body.String())
	}

	var created message.Message
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created message: %v", err)
	}
	if created.ID != "m1" || created.Value != "hello" {
		t.Fatalf("created = %+v", created)
	}

	historyRR := doRequest(mux, "GET", "/queues/q/messages/history", nil)
	if historyRR.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", historyRR.Code)
	}
	var hist []message.QueuedMessage
	if err := json.Unmarshal(historyRR.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist) != 1 || hist[0].Message.ID != "m1" {
		t.Fatalf("history = %+v, want one entry for m1", hist)
	}

	dequeued, ok := h.Storage.DequeueNext("q")
	if !ok || dequeued.ID != "m1" {
		t.Fatalf("preload did not actually enqueue into q: msg=%v ok=%v", dequeued, ok)
	}
}

func TestPreloadQueueMessageRejectsInvalidJSON(t *testing.T) {
	_, mux := newTestHandler()
	rr := doRequest(mux, "POST", "/queues/q/messages", []byte("{not json"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestQueueHistoryFiltersToNamedQueueOnly(t *testing.T) {
	h, mux := newTestHandler()
	h.Storage.EnqueueToQueue("q1", message.New("a", "m1", "", "q1", nil))
	h.Storage.EnqueueToQueue("q2", message.New("b", "m2", "", "q2", nil))

	rr := doRequest(mux, "GET", "/queues/q1/messages/history", nil)
	var hist []message.QueuedMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(hist) != 1 || hist[0].Message.ID != "m1" {
		t.Fatalf("history for q1 = %+v, want only m1", hist)
	}
}

func TestListAndDeleteExchangeMessages(t *testing.T) {
	h, mux := newTestHandler()
	h.Storage.PublishToExchangeLog("ex", message.New("v", "m1", "ex", "", nil))

	listRR := doRequest(mux, "GET", "/exchanges/ex/messages", nil)
	var log []message.Message
	if err := json.Unmarshal(listRR.Body.Bytes(), &log); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(log) != 1 || log[0].ID != "m1" {
		t.Fatalf("list = %+v, want one entry", log)
	}

	delRR := doRequest(mux, "DELETE", "/exchanges/ex/messages", nil)
	if delRR.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", delRR.Code)
	}
	if got := h.Storage.ListExchangeMessages("ex"); len(got) != 0 {
		t.Fatalf("exchange log after delete = %v, want empty", got)
	}
}

func TestListAndDeleteDefaultExchangeMessages(t *testing.T) {
	h, mux := newTestHandler()
	h.Storage.PublishToExchangeLog(storage.DefaultExchange, message.New("v", "m1", "", "", nil))

	listRR := doRequest(mux, "GET", "/exchanges/messages", nil)
	var log []message.Message
	if err := json.Unmarshal(listRR.Body.Bytes(), &log); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(log) != 1 || log[0].ID != "m1" {
		t.Fatalf("list = %+v, want one entry", log)
	}

	delRR := doRequest(mux, "DELETE", "/exchanges/messages", nil)
	if delRR.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", delRR.Code)
	}
	if got := h.Storage.ListExchangeMessages(storage.DefaultExchange); len(got) != 0 {
		t.Fatalf("default exchange log after delete = %v, want empty", got)
	}
}

func TestClearAllResetsStorage(t *testing.T) {
	h, mux := newTestHandler()
	h.Storage.EnqueueToQueue("q", message.New("v", "m1", "ex", "q", nil))
	h.Storage.PublishToExchangeLog("ex", message.New("v", "m1", "ex", "q", nil))

	rr := doRequest(mux, "DELETE", "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	if got := h.Storage.History(); len(got) != 0 {
		t.Fatalf("history after clear = %v, want empty", got)
	}
	if got := h.Storage.ListExchangeMessages("ex"); len(got) != 0 {
		t.Fatalf("exchange log after clear = %v, want empty", got)
	}
}
