package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/promptgate/promptgate/internal/config"
	"github.com/promptgate/promptgate/internal/db"
	"github.com/promptgate/promptgate/internal/ratelimit"
	"github.com/promptgate/promptgate/internal/upstream"
)

const (
	promptMinLen = 20
	promptMaxLen = 12000
)

// Streamer opens a streamed generation for one prompt.
type Streamer interface {
	StreamMessage(ctx context.Context, prompt string) (io.ReadCloser, error)
}

// GenerateHandler forwards prompts to the generation API, hiding the
// credential and relaying the event stream back to the caller.
type GenerateHandler struct {
	limiter *ratelimit.RateLimiter
	db      *db.DB
	logger  *zap.Logger

	// apiKey is read per request so a rotated credential needs no restart.
	apiKey func() string
	// newStreamer builds the upstream client; tests swap it out.
	newStreamer func(apiKey string) Streamer
}

func NewGenerateHandler(limiter *ratelimit.RateLimiter, database *db.DB, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{
		limiter: limiter,
		db:      database,
		logger:  logger,
		apiKey:  func() string { return os.Getenv(config.APIKeyEnv) },
		newStreamer: func(apiKey string) Streamer {
			client := upstream.NewClient(apiKey)
			// Local development hook: point at a stand-in upstream.
			if base := os.Getenv("ANTHROPIC_BASE_URL"); base != "" {
				client.BaseURL = base
			}
			return client
		},
	}
}

type generateRequest struct {
	Prompt *string `json:"prompt"`
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	// Admission runs before body validation; an invalid body still
	// consumes quota.
	if d := h.limiter.CheckAndRecord(clientID); !d.Allowed {
		h.logger.Info("rate limited",
			zap.String("client", clientID),
			zap.String("reason", d.Reason))
		writeError(rec, http.StatusTooManyRequests, d.Reason)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == nil || utf8.RuneCountInString(*req.Prompt) < promptMinLen {
		writeError(rec, http.StatusBadRequest, "A valid prompt of at least 20 characters is required.")
		return
	}
	if utf8.RuneCountInString(*req.Prompt) > promptMaxLen {
		writeError(rec, http.StatusBadRequest, "Prompt is too long (maximum 12000 characters).")
		return
	}

	apiKey := h.apiKey()
	if apiKey == "" {
		h.logger.Error("upstream api key is not configured")
		writeError(rec, http.StatusInternalServerError, "Server is not configured with an API key.")
		return
	}

	stream, err := h.newStreamer(apiKey).StreamMessage(r.Context(), *req.Prompt)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			h.logger.Warn("upstream rejected generation",
				zap.Int("status", statusErr.StatusCode),
				zap.String("message", statusErr.Message))
			writeError(rec, http.StatusBadGateway, statusErr.Message)
			return
		}
		h.logger.Warn("upstream request failed", zap.Error(err))
		writeError(rec, http.StatusBadGateway, "upstream error")
		return
	}
	defer stream.Close()

	rec.Header().Set("Content-Type", "text/event-stream")
	rec.Header().Set("Cache-Control", "no-cache")
	rec.Header().Set("Connection", "keep-alive")
	rec.WriteHeader(http.StatusOK)

	h.relay(rec, stream)
}

// relay copies upstream chunks to the caller as they arrive, flushing each
// one. A write failure means the caller disconnected; a read failure means
// the upstream stream ended. Both terminate the loop cleanly.
func (h *GenerateHandler) relay(w *responseRecorder, stream io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				h.logger.Debug("caller disconnected mid-stream")
				return
			}
			w.Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("upstream stream ended early", zap.Error(err))
			}
			return
		}
	}
}
