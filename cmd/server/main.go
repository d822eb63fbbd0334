package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knc-neural-calculus/loom/internal/api"
	"github.com/knc-neural-calculus/loom/internal/config"
	"github.com/knc-neural-calculus/loom/internal/generate"
	"github.com/knc-neural-calculus/loom/internal/model"
	"github.com/knc-neural-calculus/loom/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mdl := model.New(log)

	// Open the configured tree file, if any. The server can also start empty
	// and load a document over the API.
	if cfg.TreeFile != "" {
		doc, err := store.Load(cfg.TreeFile)
		if err != nil {
			log.Error("open tree file", "path", cfg.TreeFile, "error", err)
			os.Exit(1)
		}
		if err := mdl.SetDocument(doc); err != nil {
			log.Error("load tree file", "path", cfg.TreeFile, "error", err)
			os.Exit(1)
		}
		log.Info("tree loaded", "path", cfg.TreeFile, "nodes", mdl.NodeCount())

		if cfg.Model != "" {
			settings := mdl.GenerationSettings()
			settings.Model = cfg.Model
			if err := mdl.UpdateGenerationSettings(settings); err != nil {
				log.Error("override model", "error", err)
				os.Exit(1)
			}
		}
	}

	// Initialize the completion backend and generation worker.
	backend := generate.NewClient(cfg.BackendURL, cfg.BackendAPIKey)
	orch := generate.NewOrchestrator(mdl, backend, log, cfg.QueueSize)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(mdl, orch, log, cfg)

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

		// Drain HTTP first so no handler is still queueing generation work
		// when the orchestrator closes its queue.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		backend.Close()
	}()

	log.Info("starting loom", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
