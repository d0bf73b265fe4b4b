// Package httpapi implements the HTTP control API (spec §6): a side-channel
// JSON surface tests use to preload messages, inspect exchange/queue state,
// and reset storage between runs. It is an independent reader/writer of the
// same Storage the AMQP connections use.
package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amqpmock/internal/storage"
)

// Handler holds every dependency the control API needs.
type Handler struct {
	Storage *storage.Storage
}

// RegisterRoutes attaches the control API's routes to mux, in the manner of
// the teacher's api.Handler.RegisterRoutes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthcheck", h.Healthcheck)
	mux.HandleFunc("DELETE /{$}", h.ClearAll)

	// The default exchange's name is "", which net/http.ServeMux can never
	// route through {exchange}: a request path of "/exchanges//messages"
	// gets collapsed by the mux's path cleaning before pattern matching, so
	// the empty segment is unreachable. Register it as its own literal route.
	mux.HandleFunc("GET /exchanges/messages", h.ListDefaultExchangeMessages)
	mux.HandleFunc("DELETE /exchanges/messages", h.DeleteDefaultExchangeMessages)

	mux.HandleFunc("GET /exchanges/{exchange}/messages", h.ListExchangeMessages)
	mux.HandleFunc("DELETE /exchanges/{exchange}/messages", h.DeleteExchangeMessages)

	mux.HandleFunc("POST /queues/{queue}/messages", h.PreloadQueueMessage)
	mux.HandleFunc("GET /queues/{queue}/messages/history", h.QueueHistory)

	mux.Handle("GET /metrics", promhttp.Handler())
}
