package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/promptgate/promptgate/internal/admin"
	"github.com/promptgate/promptgate/internal/cache"
	"github.com/promptgate/promptgate/internal/config"
	"github.com/promptgate/promptgate/internal/db"
	"github.com/promptgate/promptgate/internal/middleware"
	"github.com/promptgate/promptgate/internal/proxy"
	"github.com/promptgate/promptgate/internal/ratelimit"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	// Optional access-log store
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.NewDB(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer database.Close()
	} else {
		logger.Info("no DATABASE_URL configured, access logging disabled")
	}

	// Optional fetch page cache
	var pageCache *cache.PageCache
	if cfg.RedisURL != "" {
		pageCache, err = cache.NewPageCache(cfg.RedisURL, cfg.FetchCacheTTL)
		if err != nil {
			logger.Fatal("failed to initialize page cache", zap.Error(err))
		}
		defer pageCache.Close()
	}

	// Rate limiter state lives in this process only; each instance
	// enforces its limits independently.
	limiter := ratelimit.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax, cfg.RateLimitDailyCap)

	if os.Getenv(config.APIKeyEnv) == "" {
		logger.Warn("upstream api key not set, generation requests will fail",
			zap.String("env", config.APIKeyEnv))
	}

	// Initialize router
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.CORS)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(map[string]string{"error": "method not allowed"})
	})

	router.HandleFunc("/health", healthHandler).Methods("GET")

	router.Handle("/api/generate",
		proxy.NewGenerateHandler(limiter, database, logger)).Methods("POST", "OPTIONS")
	router.Handle("/api/fetch",
		proxy.NewFetchHandler(pageCache, database, logger)).Methods("POST", "OPTIONS")

	admin.NewAdminHandler(limiter, database, logger).RegisterRoutes(router)

	logger.Info("server starting",
		zap.String("port", cfg.ServerPort),
		zap.Duration("rate_window", cfg.RateLimitWindow),
		zap.Int("rate_max", cfg.RateLimitMax),
		zap.Int("daily_cap", cfg.RateLimitDailyCap))
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zcfg.Level = lvl
	}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	return logger
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": version,
	})
}
