package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mangako/database"
	"mangako/internal/catalog/mangadex"
	"mangako/internal/config"
	"mangako/internal/library"
	"mangako/internal/repository"
)

func main() {
	once := flag.Bool("once", false, "refresh the library a single time and exit")
	metadata := flag.Bool("metadata", true, "also refresh manga metadata from the catalog")
	flag.Parse()

	log.Println("===========================================")
	log.Println("   Library Refresh Service Starting...")
	log.Println("===========================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[Fatal] could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Fatal] %v", err)
	}
	logger := config.NewLogger(cfg)

	db, err := database.OpenGorm(cfg, logger)
	if err != nil {
		log.Fatalf("[Fatal] Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	log.Println("[Database] ✅ Connected successfully")

	log.Println("[Config] Loaded configuration:")
	log.Printf("  - API URL: %s", cfg.MangaDexAPIURL)
	log.Printf("  - API Key: %s", maskAPIKey(cfg.MangaDexAPIKey))
	log.Printf("  - Cover Locale: %s", cfg.CoverLocale)
	log.Printf("  - Worker Count: %d", cfg.RefreshWorkers)
	log.Printf("  - Page Size: %d", cfg.VolumePageSize)
	log.Printf("  - Interval: %s", cfg.RefreshInterval)

	client := mangadex.NewClient(cfg.MangaDexAPIURL, cfg.MangaDexAPIKey, mangadex.WithLogger(logger))
	refresher := library.NewRefresher(
		mangadex.NewCatalog(client, cfg.CoverLocale, logger),
		repository.NewMangaRepository(db),
		repository.NewVolumeRepository(db),
		repository.NewSyncStateRepository(db),
		library.RefreshConfig{
			Workers:         cfg.RefreshWorkers,
			PageSize:        cfg.VolumePageSize,
			RefreshMetadata: *metadata,
			Logger:          logger,
		})
	log.Println("[Refresher] ✅ Service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\n[Shutdown] Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	if *once {
		report, err := refresher.RefreshAll(ctx)
		if err != nil {
			log.Fatalf("[Refresh] Error: %v", err)
		}
		log.Printf("[Refresh] ✅ %d/%d manga refreshed, %d failed, %d volumes (%s)",
			report.Refreshed, report.Manga, report.Failed, report.Volumes,
			report.FinishedAt.Sub(report.StartedAt).Round(1e6))
		return
	}

	refresher.StartPoller(ctx, cfg.RefreshInterval)
	log.Printf("[Service] ✅ Refreshing every %s. Press Ctrl+C to stop", cfg.RefreshInterval)

	<-ctx.Done()
	log.Println("[Shutdown] Service stopped gracefully")
	log.Println("===========================================")
}

func maskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
}
