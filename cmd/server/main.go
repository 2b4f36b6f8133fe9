package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/emdoc/internal/api"
	"github.com/dgallion1/emdoc/internal/config"
	"github.com/dgallion1/emdoc/internal/diag"
	"github.com/dgallion1/emdoc/internal/document"
	"github.com/dgallion1/emdoc/internal/pipeline"
)

func main() {
	cfg := config.Load()

	opts := &slog.HandlerOptions{}
	if cfg.LogDebug {
		opts.Level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, opts))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	rules, err := cfg.MetadataRules()
	if err != nil {
		log.Error("invalid metadata rules", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the document engine over the content root.
	engine := document.NewEngine(document.Options{
		FS:       os.DirFS(cfg.ContentRoot),
		Messages: diag.NewMessages(cfg.Language()),
		Rules:    rules,
		Logger:   log,
	})

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, engine, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(engine, orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting emdoc",
		"port", cfg.Port,
		"content_root", cfg.ContentRoot,
		"workers", cfg.WorkerCount,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
