package sync

import (
	"encoding/json"
	"net/http"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/gorilla/mux"
)

// HTTPHandler exposes the manual sync trigger.
type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/sync", h.handleSync).Methods(http.MethodPost)
}

type syncRequest struct {
	OrderID string `json:"order_id"`
}

func (h *HTTPHandler) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Submit(r.Context(), req.OrderID)
	if err != nil {
		logger.WithOrder(req.OrderID).WithError(err).Error("sync trigger failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(result.Code))
	json.NewEncoder(w).Encode(result)
}

func statusFor(code string) int {
	switch code {
	case CodeOK, CodeAlreadySynced:
		return http.StatusOK
	case CodeSaleNotFound:
		return http.StatusNotFound
	case CodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}
