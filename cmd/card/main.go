package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Chlothzy/internal/card"
	"Chlothzy/internal/catalog"
	"Chlothzy/internal/config"
	"Chlothzy/internal/flow"
	"Chlothzy/internal/storage"
	"Chlothzy/pkg/kit"
)

const sweepInterval = 1 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger("card", "info").Fatal("load config failed", zap.Error(err))
	}

	log := kit.NewLogger(cfg.Service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	kv, products, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("open storage failed", zap.Error(err), zap.String("backend", cfg.StorageBackend))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := card.NewSessions(kv, log, card.FlowConfig{
		AddToCartDelay: cfg.AddToCartDelay,
		BuyNowDelay:    cfg.BuyNowDelay,
		ResetDelay:     cfg.FlowResetDelay,
	}, flow.NewMetrics(reg))

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go sessions.RunSweeper(sweepCtx, sweepInterval, cfg.SessionIdle)

	s := &card.Server{
		Sessions: sessions,
		Catalog:  products,
		KV:       kv,
		Tokens:   card.NewTokenMaker(cfg.SessionSecret),
		TokenTTL: cfg.SessionTTL,
		Log:      log,
	}

	h := card.NewHandler(s, card.HTTPDeps{
		Log:                log,
		Service:            cfg.Service,
		Registry:           reg,
		MetricsEnabled:     cfg.MetricsEnabled,
		MetricsToken:       cfg.MetricsToken,
		SessionLimitPerMin: cfg.SessionLimitPerMin,
		TrustProxy:         cfg.TrustProxy,
	})

	log.Info("product card initialized", zap.String("storage", cfg.StorageBackend))

	err = kit.RunHTTPServer(":"+cfg.Port, h, log, stopSweep, func() {
		if err := kv.Close(); err != nil {
			log.Warn("close storage failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Store, catalog.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Info("using in-memory storage; state is lost on restart")
		return storage.NewMemStore(), catalog.NewMemStore(), nil

	case config.BackendSQLite:
		kv, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using sqlite storage", zap.String("path", cfg.SQLitePath))
		return kv, catalog.NewMemStore(), nil

	case config.BackendRedis:
		kv, err := storage.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis storage", zap.String("addr", cfg.RedisAddr))
		return kv, catalog.NewMemStore(), nil

	case config.BackendPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		kv := storage.NewPostgresStore(db)
		if err := kv.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		products := catalog.NewPostgresStore(db)
		if err := products.Migrate(ctx, catalog.DefaultProduct); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate products: %w", err)
		}
		log.Info("using postgres storage")
		return kv, products, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
