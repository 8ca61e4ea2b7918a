// Package router provides docqa service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docqa/internal/docqa/handler"
)

// Register registers the docqa service routes.
func Register(engine *gin.Engine, inference *handler.InferenceHandler, ingestion *handler.IngestionHandler) {
	logger.Info("Registering docqa routes...")

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	{
		// Question answering endpoints
		api.POST("/inference", inference.Infer)
		api.POST("/direct-inference", inference.DirectInfer)
		api.POST("/chat", inference.Chat)

		// Ingestion endpoints
		api.POST("/ingestion", ingestion.Upload)
		api.POST("/ingestion/run", ingestion.Ingest)

		// Stats endpoint
		api.GET("/stats", ingestion.Stats)
	}

	logger.Info("HTTP routes registered")
}
