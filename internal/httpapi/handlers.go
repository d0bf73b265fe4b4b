package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"amqpmock/internal/message"
	"amqpmock/internal/storage"
)

// Healthcheck — GET /healthcheck
func (h *Handler) Healthcheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("200 OK"))
}

// ClearAll — DELETE / resets every exchange, queue, binding and history
// record (spec §6).
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.Storage.Clear()
	writeJSON(w, http.StatusOK, nil)
}

// ListExchangeMessages — GET /exchanges/{exchange}/messages returns the
// exchange's published-log, newest first.
func (h *Handler) ListExchangeMessages(w http.ResponseWriter, r *http.Request) {
	exchange := r.PathValue("exchange")
	writeJSON(w, http.StatusOK, h.Storage.ListExchangeMessages(exchange))
}

// DeleteExchangeMessages — DELETE /exchanges/{exchange}/messages clears only
// that exchange's published-log; queues and history are untouched.
func (h *Handler) DeleteExchangeMessages(w http.ResponseWriter, r *http.Request) {
	exchange := r.PathValue("exchange")
	h.Storage.DeleteExchangeMessages(exchange)
	writeJSON(w, http.StatusOK, nil)
}

// ListDefaultExchangeMessages — GET /exchanges/messages is the default
// exchange's ("") equivalent of ListExchangeMessages.
func (h *Handler) ListDefaultExchangeMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Storage.ListExchangeMessages(storage.DefaultExchange))
}

// DeleteDefaultExchangeMessages — DELETE /exchanges/messages is the default
// exchange's equivalent of DeleteExchangeMessages.
func (h *Handler) DeleteDefaultExchangeMessages(w http.ResponseWriter, r *http.Request) {
	h.Storage.DeleteExchangeMessages(storage.DefaultExchange)
	writeJSON(w, http.StatusOK, nil)
}

// preloadRequest mirrors the Message JSON schema (spec §6).
type preloadRequest struct {
	ID         string             `json:"id"`
	Value      any                `json:"value"`
	Exchange   string             `json:"exchange"`
	RoutingKey string             `json:"routing_key"`
	Properties message.Properties `json:"properties"`
}

// PreloadQueueMessage — POST /queues/{queue}/messages enqueues a message
// straight into the named queue's FIFO, bypassing exchange routing entirely,
// so tests can preload fixtures a consumer will then pull.
func (h *Handler) PreloadQueueMessage(w http.ResponseWriter, r *http.Request) {
	queue := r.PathValue("queue")

	var req preloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("preload decode failed", "component", "httpapi", "queue", queue, "error", err)
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	msg := message.New(req.Value, req.ID, req.Exchange, req.RoutingKey, req.Properties)
	h.Storage.EnqueueToQueue(queue, msg)
	writeJSON(w, http.StatusCreated, msg)
}

// QueueHistory — GET /queues/{queue}/messages/history returns the
// delivery-lifecycle history filtered to the named queue, newest first.
func (h *Handler) QueueHistory(w http.ResponseWriter, r *http.Request) {
	queue := r.PathValue("queue")

	all := h.Storage.History()
	out := make([]message.QueuedMessage, 0, len(all))
	for _, qm := range all {
		if qm.Queue == queue {
			out = append(out, qm)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "component", "httpapi", "error", err)
	}
}
