package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mangako/database"
	"mangako/internal/api"
	"mangako/internal/catalog/mangadex"
	"mangako/internal/config"
	"mangako/internal/library"
	"mangako/internal/repository"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("===========================================")
	log.Println("   Mangako API Server Starting...")
	log.Println("===========================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("[Fatal] could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Fatal] %v", err)
	}
	logger := config.NewLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.OpenGorm(cfg, logger)
	if err != nil {
		log.Fatalf("[Fatal] Failed to connect to database: %v", err)
	}
	defer database.Close(db)
	log.Println("[Database] ✅ Connected successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, closeCache := newSearchCache(ctx, cfg, logger)
	defer closeCache()

	client := mangadex.NewClient(cfg.MangaDexAPIURL, cfg.MangaDexAPIKey, mangadex.WithLogger(logger))
	catalog := mangadex.NewCatalog(client, cfg.CoverLocale, logger)

	engine := library.NewEngine(catalog,
		repository.NewMangaRepository(db),
		repository.NewVolumeRepository(db),
		cache,
		library.EngineConfig{
			VolumePageSize:        cfg.VolumePageSize,
			SearchPageSize:        cfg.SearchPageSize,
			DeleteVolumesOnRemove: cfg.DeleteVolumesOnRemove,
			Logger:                logger,
		})
	defer engine.Close()
	log.Println("[Engine] ✅ Library engine initialized")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.NewRouter(engine, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Server] 🚀 Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Fatal] server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("[Shutdown] Received shutdown signal, gracefully stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Shutdown] forced: %v", err)
	}
	log.Println("[Shutdown] Server stopped gracefully")
}

// newSearchCache uses redis when REDIS_URL is set and falls back to memory
// when it is unset or unreachable.
func newSearchCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (library.SearchCache, func()) {
	if cfg.UsesRedis() {
		rdb, err := library.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err == nil {
			log.Println("[Cache] ✅ Redis search cache connected")
			return library.NewRedisCache(rdb, cfg.CacheTTL, logger), func() { rdb.Close() }
		}
		log.Printf("[Cache] ⚠️ Redis unavailable, using memory cache: %v", err)
	}
	return library.NewMemoryCache(cfg.SearchCacheMaxEntries), func() {}
}
