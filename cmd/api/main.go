package main

import (
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	pg "msk-care-coordination/internal/adapters/storage/postgres"
	"msk-care-coordination/internal/platform/config"
	"msk-care-coordination/internal/platform/logger"
	"msk-care-coordination/internal/router"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	opts := router.Options{
		AuthVerifier: nil, // dev-header auth until the identity provider lands
		Logger:       zl,
	}
	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			zl.Fatal("postgres connection failed", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		opts.DB = db
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	zl.Info("starting server", zap.String("addr", addr), zap.Bool("postgres", opts.DB != nil))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zl.Fatal("server error", zap.Error(err))
	}
}
