package alerts

import (
	"encoding/json"
	"net/http"

	"github.com/develoddy/fulfillment/pkg/common/logger"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type HTTPHandler struct {
	db *gorm.DB
}

type Summary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
}

type ListResponse struct {
	Summary Summary `json:"summary"`
	Items   []Alert `json:"items"`
}

func NewHTTPHandler(db *gorm.DB) *HTTPHandler {
	return &HTTPHandler{db: db}
}

func (h *HTTPHandler) Register(r *mux.Router) {
	r.HandleFunc("/alerts", h.handleList).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	summary := Summary{}
	if err := h.db.WithContext(r.Context()).Raw(`
		SELECT
			SUM(CASE WHEN severity = 'critical' THEN 1 ELSE 0 END) AS critical,
			SUM(CASE WHEN severity = 'warning' THEN 1 ELSE 0 END) AS warning
		FROM fulfillment_alerts
		WHERE created_at > NOW() - INTERVAL '7 days'
	`).Scan(&summary).Error; err != nil {
		logger.Log.WithError(err).Error("failed to summarize alerts")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	var items []Alert
	query := h.db.WithContext(r.Context()).Order("created_at DESC").Limit(25)
	if severity := r.URL.Query().Get("severity"); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if err := query.Find(&items).Error; err != nil {
		logger.Log.WithError(err).Error("failed to load alerts")
		http.Error(w, "failed to fetch alerts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Summary: summary, Items: items})
}
