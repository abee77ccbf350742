package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/gorilla/mux"
)

// HTTPHandler exposes the provider's push endpoint. It always acknowledges
// with 200; a non-2xx answer would trigger provider-side redelivery storms.
type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/webhooks/fulfillment", h.handleEvent).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body := io.Reader(r.Body)
	if h.maxBody > 0 {
		body = io.LimitReader(r.Body, h.maxBody)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		logger.WithError(err).Warn("failed to read webhook body")
		raw = nil
	}

	h.service.Ingest(r.Context(), raw)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
