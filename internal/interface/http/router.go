package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanqian/rihla/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger, cfg.HTTP.ExposeErrorDetails),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger))
	{
		api.POST("/itineraries", handler.GenerateItinerary)
		api.POST("/heritage", handler.RecognizeHeritage)
		api.POST("/heritage/vision", handler.RecognizeHeritageUpload)
		api.POST("/sustainability", handler.SustainabilityInsights)
		api.POST("/translations", handler.Translate)
		api.POST("/translations/batch", handler.TranslateBatch)
		api.POST("/chat", handler.Chat)
		api.GET("/videos", handler.SearchVideos)
		if cfg.Diagnostics.Enabled {
			api.GET("/diagnostics/generations", handler.RecentGenerations)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
