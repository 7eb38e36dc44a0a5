package proxy

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/promptgate/promptgate/internal/db"
	"github.com/promptgate/promptgate/internal/models"
)

// recordAccess logs the completed request and, when a database is
// configured, persists it asynchronously. Storage errors never affect the
// response; it has already been written.
func recordAccess(logger *zap.Logger, database *db.DB, r *http.Request, clientID string, rec *responseRecorder, start time.Time) {
	logger.Info("request completed",
		zap.String("endpoint", r.URL.Path),
		zap.String("client", clientID),
		zap.Int("status", rec.statusCode),
		zap.Duration("elapsed", time.Since(start)))

	if database == nil {
		return
	}

	entry := &models.AccessLog{
		Endpoint:       r.URL.Path,
		Method:         r.Method,
		StatusCode:     rec.statusCode,
		ClientID:       clientID,
		ResponseTimeMs: int(time.Since(start).Milliseconds()),
		RequestSize:    r.ContentLength,
		ResponseSize:   int64(rec.size),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.LogAccess(ctx, entry); err != nil {
			logger.Warn("failed to record access log", zap.Error(err))
		}
	}()
}
