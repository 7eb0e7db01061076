package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/cache"
	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/internal/importer"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/internal/syncer"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, orch *syncer.Orchestrator, engine *reconciler.Engine, imp *importer.Importer, store cache.Store, log *logger.Logger, cfg *config.Config) {
	h := NewHandlers(db, orch, engine, imp, store, log, cfg)

	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", h.HealthCheck)

		// Sync operations
		api.POST("/sync/today", h.SyncToday)
		api.POST("/sync/history", h.SyncHistory)
		api.GET("/sync/status", h.SyncStatus)

		// Spreadsheet import
		api.POST("/import", h.ImportSpreadsheet)

		// Case lifecycle
		api.GET("/cases/:docket/states", h.NextStates)
		api.POST("/cases/:docket/state", h.AdvanceState)

		// Cache stats
		api.GET("/cache/stats", h.CacheStats)
	}
}
