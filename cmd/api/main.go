package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/repayplan/pkg/cache"
	"github.com/mcclellann/repayplan/pkg/config"
	"github.com/mcclellann/repayplan/pkg/ledger"
	"github.com/mcclellann/repayplan/pkg/observability"
	"github.com/mcclellann/repayplan/pkg/service"
	"github.com/mcclellann/repayplan/pkg/store"
)

// Server holds the service and the resources it must close.
type Server struct {
	service *service.Service
	storage store.Storage
	cache   cache.Repository
	metrics *observability.Metrics
}

func NewServer(s store.Storage, c cache.Repository, m *observability.Metrics, opts ...service.Option) *Server {
	opts = append(opts, service.WithMetrics(m))
	return &Server{
		service: service.New(s, c, opts...),
		storage: s,
		cache:   c,
		metrics: m,
	}
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/products", s.listProductsHandler).Methods("GET")
	router.HandleFunc("/products", s.createProductHandler).Methods("POST")
	router.HandleFunc("/products/{id}", s.getProductHandler).Methods("GET")
	router.HandleFunc("/products/{id}", s.deleteProductHandler).Methods("DELETE")
	router.HandleFunc("/products/{id}/timeline", s.productTimelineHandler).Methods("GET")
	router.HandleFunc("/products/{id}/investments", s.listInvestmentsHandler).Methods("GET")
	router.HandleFunc("/products/{id}/investments", s.createInvestmentHandler).Methods("POST")
	router.HandleFunc("/investments/{id}", s.getInvestmentHandler).Methods("GET")
	router.HandleFunc("/investments/{id}/repayments", s.repaymentsHandler).Methods("GET")
	router.HandleFunc("/investments/{id}/summary", s.summaryHandler).Methods("GET")
	router.HandleFunc("/quote", s.quoteHandler).Methods("POST")
	router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	return router
}

func (s *Server) Close() error {
	return errors.Join(s.cache.Close(), s.storage.Close())
}

func openStorage(cfg config.StoreConfig) (store.Storage, error) {
	switch cfg.Driver {
	case "bolt":
		return store.NewBoltStore(cfg.BoltPath)
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func openCache(ctx context.Context, cfg config.CacheConfig) cache.Repository {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache()
	}
	rc := cache.NewRedisCache(cfg.RedisAddr)
	if err := rc.Ping(ctx); err != nil {
		slog.Warn("redis unreachable, schedules will be recomputed until it recovers", "addr", cfg.RedisAddr, "error", err)
	}
	return rc
}

func main() {
	cfg := config.Load()
	observability.InitLogger(observability.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	totals, err := ledger.ParseTotalsPolicy(cfg.SummaryTotals)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	storage, err := openStorage(cfg.Store)
	if err != nil {
		slog.Error("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 3*time.Second)
	schedules := openCache(startCtx, cfg.Cache)
	cancelStart()

	server := NewServer(storage, schedules, observability.NewMetrics("repayplan"),
		service.WithTotals(totals), service.WithCacheTTL(cfg.Cache.TTL))
	defer server.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      server.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", httpServer.Addr, "store", cfg.Store.Driver, "totals", totals)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		slog.Error("server failed", "error", err)
		return
	case <-quit:
		slog.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("error during server shutdown", "error", err)
	}
	slog.Info("server exited")
}
