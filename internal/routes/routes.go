package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handler "ach-batch-backend/internal/handlers"
	"ach-batch-backend/internal/services/processing"
)

// Pinger reports whether the storage backend is reachable.
type Pinger func(ctx context.Context) error

func RegisterRoutes(r *gin.Engine, svc *processing.Service, ping Pinger, logger *zap.Logger) {
	batchHandler := handler.NewBatchHandler(svc, logger)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		if ping != nil {
			if err := ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	batches := api.Group("/batches", handler.RequireCompany())
	batches.POST("", batchHandler.CreateBatch)
	batches.GET("", batchHandler.ListBatches)
	batches.GET("/:batchId", batchHandler.GetBatch)
	batches.GET("/:batchId/history", batchHandler.History)
	batches.GET("/:batchId/file", batchHandler.DownloadFile)

	// Entry routes
	batches.POST("/:batchId/entries", batchHandler.AddEntry)
	batches.GET("/:batchId/entries", batchHandler.ListEntries)

	// Lifecycle routes
	batches.POST("/:batchId/validate", batchHandler.ValidateBatch)
	batches.POST("/:batchId/ready", batchHandler.MarkReady)
	batches.POST("/:batchId/process", batchHandler.ProcessBatch)
}
