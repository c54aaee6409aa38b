package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/draftlens/internal/api"
	"github.com/dgallion1/draftlens/internal/blobstore"
	"github.com/dgallion1/draftlens/internal/config"
	"github.com/dgallion1/draftlens/internal/llm"
	"github.com/dgallion1/draftlens/internal/pipeline"
	"github.com/dgallion1/draftlens/internal/session"
)

func main() {
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	blobs, err := blobstore.Open(ctx, blobstore.Options{
		Backend:      cfg.BlobBackend,
		PathstoreURL: cfg.PathstoreURL,
		PathstoreKey: cfg.PathstoreAPIKey,
		RedisURL:     cfg.RedisURL,
		RedisTTL:     cfg.RedisTTL,
	})
	if err != nil {
		log.Error("opening blob store", "backend", cfg.BlobBackend, "error", err)
		os.Exit(1)
	}
	client := llm.NewClient(llm.Options{
		BaseURL:       cfg.ServiceURL,
		ImageURL:      cfg.ImageServiceURL,
		APIKey:        cfg.ServiceAPIKey,
		Timeout:       cfg.ServiceTimeout,
		AnchorTimeout: cfg.AnchorTimeout,
		ImageTimeout:  cfg.ImageTimeout,
	})

	// Background draft writes.
	persister := pipeline.NewPersister(pipeline.PersistConfig{
		Workers:      cfg.PersistWorkers,
		QueueSize:    cfg.PersistQueueSize,
		WriteTimeout: cfg.WriteTimeout,
		RecordTTL:    cfg.WriteRecordTTL,
	}, blobs, log)
	persister.Start(ctx)

	sessions := session.NewManager(session.Options{
		Service:   client,
		Blobs:     blobs,
		Persister: persister,
		Deadlines: session.Deadlines{
			Action: cfg.ActionDeadline,
			Anchor: cfg.AnchorDeadline,
			Image:  cfg.ImageDeadline,
		},
		SessionTTL:  cfg.SessionTTL,
		PDFFallback: cfg.PDFFallbackPdftotext,
	}, log)
	go sessions.Store().Run(ctx)

	srv := api.NewServer(sessions, client.Stats, persister, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ActionDeadline + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		persister.Stop()
		cancel()
		client.Close()
		blobs.Close()
	}()

	log.Info("starting draftlens", "port", cfg.Port, "blob_backend", cfg.BlobBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}
