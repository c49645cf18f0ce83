package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ignite/affiliate-monitor/internal/api"
	"github.com/ignite/affiliate-monitor/internal/config"
	"github.com/ignite/affiliate-monitor/internal/ingest"
	"github.com/ignite/affiliate-monitor/internal/pipeline"
	"github.com/ignite/affiliate-monitor/internal/storage"
)

func main() {
	log.Println("affiliate-monitor server starting")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Build the analysis pipeline
	pipe := pipeline.New(pipeline.Options{
		AlertThresholds: &cfg.Alerts,
		Scoring:         cfg.Scoring,
		Budget:          &cfg.Budget,
	})

	// S3 export ingestion: each cycle's files become one snapshot, and the
	// resulting report replaces the cached latest analysis.
	var ingestor *ingest.Ingestor
	if cfg.Ingest.Enabled && cfg.Ingest.S3Bucket != "" {
		var analyzeMu sync.Mutex
		ingestor, err = ingest.NewIngestor(ingest.Config{
			Bucket:     cfg.Ingest.S3Bucket,
			Region:     cfg.Ingest.S3Region,
			Prefix:     cfg.Ingest.S3Prefix,
			AWSProfile: cfg.Ingest.AWSProfile,
			Interval:   time.Duration(cfg.Ingest.IntervalMinutes) * time.Minute,
		}, func(batches []ingest.Batch) {
			analyzeMu.Lock()
			defer analyzeMu.Unlock()

			report := pipe.Analyze(ingest.ToPipelineInput(batches))

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.SaveReport(ctx, report); err != nil {
				log.Printf("[main] cache ingested analysis: %v", err)
			}
		})
		if err != nil {
			log.Fatalf("Failed to initialize S3 ingestion: %v", err)
		}
		ingestor.Start()
		log.Printf("S3 ingestion started: bucket %s, every %dm", cfg.Ingest.S3Bucket, cfg.Ingest.IntervalMinutes)
	} else {
		log.Println("S3 ingestion disabled (no bucket configured)")
	}

	// HTTP API
	handlers := api.NewHandlers(pipe, store)
	server := api.NewServer(cfg.Server, handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	if ingestor != nil {
		ingestor.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
