// Package admin exposes the operator surface: retry queue inspection,
// manual overrides, and the edit-and-retry flow for recoverable failures.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/develoddy/fulfillment/pkg/orders"
	"github.com/develoddy/fulfillment/pkg/retryqueue"
	syncsvc "github.com/develoddy/fulfillment/pkg/sync"
)

// OrderEditor is the slice of the order store the edit-and-retry flow
// mutates.
type OrderEditor interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	UpdateAddress(ctx context.Context, orderID string, addr *orders.Address) error
	ReplaceItems(ctx context.Context, orderID string, items []orders.OrderItem) error
}

type HTTPHandler struct {
	queue  *retryqueue.Service
	syncer *syncsvc.Service
	store  OrderEditor
}

func NewHTTPHandler(queue *retryqueue.Service, syncer *syncsvc.Service, store OrderEditor) *HTTPHandler {
	return &HTTPHandler{queue: queue, syncer: syncer, store: store}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/retry/jobs", h.listJobs).Methods(http.MethodGet)
	router.HandleFunc("/retry/jobs/{id}", h.getJob).Methods(http.MethodGet)
	router.HandleFunc("/retry/jobs/{id}/retry", h.manualRetry).Methods(http.MethodPost)
	router.HandleFunc("/retry/jobs/{id}/cancel", h.cancelJob).Methods(http.MethodPost)
	router.HandleFunc("/orders/{id}/edit-retry", h.editAndRetry).Methods(http.MethodPost)
}

func (h *HTTPHandler) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := h.queue.List(r.Context(), q.Get("status"), q.Get("error_type"), intParam(q.Get("limit")))
	if err != nil {
		logger.WithError(err).Error("failed to list retry jobs")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

type jobView struct {
	*retryqueue.Job
	HistoryEntries []retryqueue.HistoryEntry `json:"history_entries"`
}

func (h *HTTPHandler) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, retryqueue.ErrJobNotFound) {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries, err := job.HistoryEntries()
	if err != nil {
		logger.WithField("job_id", job.ID).WithError(err).Warn("undecodable job history")
	}
	writeJSON(w, http.StatusOK, jobView{Job: job, HistoryEntries: entries})
}

// manualRetry resets the job's attempt counter and makes it due now. The
// job re-enters the normal worker pipeline rather than bypassing it, so
// the next drain pass picks it up with the usual claim semantics.
func (h *HTTPHandler) manualRetry(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.ResetForManualRetry(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type cancelRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (h *HTTPHandler) cancelJob(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		http.Error(w, "reason required", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		req.Actor = "admin"
	}

	job, err := h.queue.Cancel(r.Context(), mux.Vars(r)["id"], req.Reason, req.Actor)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type editRetryRequest struct {
	Address *orders.Address    `json:"address,omitempty"`
	Items   []orders.OrderItem `json:"items,omitempty"`
}

// editAndRetry applies operator corrections to a failed order and re-runs
// the submission pipeline in one call.
func (h *HTTPHandler) editAndRetry(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var req editRetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Address == nil && len(req.Items) == 0 {
		http.Error(w, "nothing to edit", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetOrder(r.Context(), orderID); errors.Is(err, orders.ErrNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if req.Address != nil {
		if !req.Address.Complete() {
			http.Error(w, "address incomplete", http.StatusUnprocessableEntity)
			return
		}
		if err := h.store.UpdateAddress(r.Context(), orderID, req.Address); err != nil {
			logger.WithOrder(orderID).WithError(err).Error("failed to update address")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	if len(req.Items) > 0 {
		if err := h.store.ReplaceItems(r.Context(), orderID, req.Items); err != nil {
			logger.WithOrder(orderID).WithError(err).Error("failed to replace items")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}

	result, err := h.syncer.Submit(r.Context(), orderID)
	if err != nil {
		logger.WithOrder(orderID).WithError(err).Error("edit-retry submission failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, retryqueue.ErrJobNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
	case errors.Is(err, retryqueue.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		logger.WithError(err).Error("retry queue operation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func intParam(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
