package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/promptgate/promptgate/internal/db"
	"github.com/promptgate/promptgate/internal/ratelimit"
)

// AdminHandler exposes a small read-only ops surface: live limiter counters
// and, when an access-log store is configured, per-day usage.
type AdminHandler struct {
	limiter *ratelimit.RateLimiter
	db      *db.DB
	logger  *zap.Logger
}

func NewAdminHandler(limiter *ratelimit.RateLimiter, database *db.DB, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{limiter: limiter, db: database, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/ratelimit/stats", h.GetRateLimitStats).Methods("GET")
	router.HandleFunc("/admin/usage", h.GetUsage).Methods("GET")
}

func (h *AdminHandler) GetRateLimitStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.limiter.Stats())
}

func (h *AdminHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "no access-log store configured"})
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}

	usage, err := h.db.GetDailyUsage(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to load usage", zap.Error(err))
		http.Error(w, "Failed to get usage", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(usage)
}
