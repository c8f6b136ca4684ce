package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/meal-planner/internal/backend"
	"github.com/fdg312/meal-planner/internal/blob"
	"github.com/fdg312/meal-planner/internal/catalog"
	"github.com/fdg312/meal-planner/internal/config"
	"github.com/fdg312/meal-planner/internal/logger"
	"github.com/fdg312/meal-planner/internal/planner"
	"github.com/fdg312/meal-planner/internal/planstore"
	"github.com/fdg312/meal-planner/internal/reports"
	"github.com/fdg312/meal-planner/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	// The terminal belongs to the UI, so logs go to a file.
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "planner.log"
	}
	zl, err := logger.New(cfg.Env, cfg.LogLevel, logFile)
	if err != nil {
		log.Fatalf("FATAL logger: %v", err)
	}
	defer logger.Close(zl)
	restore := zap.RedirectStdLog(zl)
	defer restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, mode, err := blob.NewBlobStore(ctx, cfg.Blob, zap.NewStdLog(zl))
	if err != nil {
		zl.Error("blob store unavailable", zap.Error(err))
		return 1
	}
	zl.Info("blob store ready", zap.String("mode", mode))

	cache := catalog.NewCache(store, cfg.Catalog.CacheKey)
	if err := cache.Load(ctx); err != nil {
		zl.Warn("catalog cache not loaded, starting empty", zap.Error(err))
	}
	defer flushCache(zl, cache)

	var sources []catalog.Source
	if cfg.Catalog.UsesLocal() {
		sources = append(sources, catalog.DefaultMenu())
	}
	if cfg.Catalog.UsesRemote() {
		remote := catalog.NewClient(cfg.Catalog.BaseURL, nil)
		sources = append(sources, catalog.NewFetcher(remote, cache, cfg.Catalog.BatchSize, cfg.Catalog.BatchDelay, zl))
	}
	zl.Info("dish sources",
		zap.String("catalog_mode", cfg.Catalog.Mode),
		zap.String("catalog_url", cfg.Catalog.BaseURL),
		zap.Int("cached_entries", cache.Len()),
	)

	api := backend.NewClient(cfg.BackendBaseURL, backend.WithToken(cfg.BackendToken))
	zl.Info("backend", zap.String("url", cfg.BackendBaseURL), zap.Bool("token", cfg.BackendToken != ""))

	ctrl := planner.New(planner.Options{
		Store:   planstore.New(api, zl),
		Dishes:  catalog.NewMulti(zl, sources...),
		History: api,
		Logger:  zl,
	})
	exporter := reports.NewService(store, cfg.ReportsPrefix, cfg.Blob.S3.PresignTTLSeconds)

	if err := tui.Run(ctx, ctrl, exporter); err != nil && ctx.Err() == nil {
		zl.Error("planner exited", zap.Error(err))
		return 1
	}
	return 0
}

func flushCache(zl *zap.Logger, cache *catalog.Cache) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cache.Flush(ctx); err != nil {
		zl.Warn("catalog cache not saved", zap.Error(err))
	}
}
