package api

import (
	"log/slog"
	"net/http"
	"time"

	"mangako/internal/api/handler"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts every route on a fresh gin engine.
func NewRouter(svc handler.LibraryService, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	volumes := handler.NewVolumeHandler(svc)
	volumes.RegisterRoutes(api.Group("/manga"), api.Group("/volumes"))

	handler.NewLibraryHandler(svc).RegisterRoutes(api.Group("/library"))
	handler.NewSearchHandler(svc).RegisterRoutes(api.Group("/search"))

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
