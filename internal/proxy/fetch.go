package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/promptgate/promptgate/internal/cache"
	"github.com/promptgate/promptgate/internal/db"
)

const fetchUserAgent = "PromptGate/1.0 (+https://github.com/promptgate/promptgate)"

// FetchHandler retrieves an external URL server-side so browser callers can
// read sites their origin policy would otherwise block.
type FetchHandler struct {
	cache  *cache.PageCache
	db     *db.DB
	logger *zap.Logger
	client *http.Client
}

func NewFetchHandler(pageCache *cache.PageCache, database *db.DB, logger *zap.Logger) *FetchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FetchHandler{
		cache:  pageCache,
		db:     database,
		logger: logger,
		// Redirects are followed by default; only the total time is bounded.
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type fetchRequest struct {
	URL *string `json:"url"`
}

type fetchResponse struct {
	HTML string `json:"html"`
}

func (h *FetchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()
	rec := newResponseRecorder(w)
	clientID := ClientIdentifier(r)
	defer func() {
		recordAccess(h.logger, h.db, r, clientID, rec, start)
	}()

	var req fetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == nil {
		writeError(rec, http.StatusBadRequest, "A valid URL is required.")
		return
	}

	target, err := url.Parse(*req.URL)
	if err != nil || !target.IsAbs() || (target.Scheme != "http" && target.Scheme != "https") {
		writeError(rec, http.StatusBadRequest, "URL must be an absolute http or https URL.")
		return
	}

	if body, ok := h.cache.Get(r.Context(), target.String()); ok {
		rec.Header().Set("X-Cache-Status", "HIT")
		writeJSON(rec, http.StatusOK, fetchResponse{HTML: body})
		return
	}

	outReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(rec, http.StatusBadRequest, "URL must be an absolute http or https URL.")
		return
	}
	outReq.Header.Set("User-Agent", fetchUserAgent)
	outReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	outReq.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(outReq)
	if err != nil {
		h.logger.Warn("site fetch failed", zap.String("url", target.String()), zap.Error(err))
		writeError(rec, http.StatusBadGateway, fmt.Sprintf("failed to fetch site: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		writeError(rec, http.StatusBadGateway, fmt.Sprintf("upstream returned status %d", resp.StatusCode))
		return
	}

	// The whole body is read as text with no size cap. Known limitation.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(rec, http.StatusBadGateway, fmt.Sprintf("failed to read site body: %v", err))
		return
	}

	if err := h.cache.Set(r.Context(), target.String(), string(body)); err != nil {
		h.logger.Warn("failed to cache fetched page", zap.Error(err))
	}

	writeJSON(rec, http.StatusOK, fetchResponse{HTML: string(body)})
}
