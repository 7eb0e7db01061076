package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ELENA-QPA/elena-case-sync/internal/cache"
	"github.com/ELENA-QPA/elena-case-sync/internal/config"
	"github.com/ELENA-QPA/elena-case-sync/internal/database"
	"github.com/ELENA-QPA/elena-case-sync/internal/importer"
	"github.com/ELENA-QPA/elena-case-sync/internal/provider"
	"github.com/ELENA-QPA/elena-case-sync/internal/reconciler"
	"github.com/ELENA-QPA/elena-case-sync/internal/syncer"
	"github.com/ELENA-QPA/elena-case-sync/pkg/logger"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	db           *gorm.DB
	orchestrator *syncer.Orchestrator
	engine       *reconciler.Engine
	importer     *importer.Importer
	cache        cache.Store
	logger       *logger.Logger
	cfg          *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, orch *syncer.Orchestrator, engine *reconciler.Engine, imp *importer.Importer, store cache.Store, log *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		db:           db,
		orchestrator: orch,
		engine:       engine,
		importer:     imp,
		cache:        store,
		logger:       log,
		cfg:          cfg,
	}
}

// SyncToday triggers a manual sync of today's change feed. Unlike scheduled
// runs, failures surface to the caller.
func (h *Handlers) SyncToday(c *gin.Context) {
	userID := c.DefaultQuery("user_id", "anonymous")
	h.logger.Info("Manual sync requested", "user_id", userID)

	summary, err := h.orchestrator.SyncToday(database.TriggerManual)
	if err != nil {
		status := http.StatusInternalServerError
		var reqErr *provider.RequestError
		if errors.Is(err, provider.ErrAuth) || errors.As(err, &reqErr) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// SyncHistory backfills the change feed from a start date through today.
func (h *Handlers) SyncHistory(c *gin.Context) {
	var req struct {
		StartDate string `json:"start_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "start_date is required: " + err.Error(),
		})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "start_date must be YYYY-MM-DD",
		})
		return
	}
	if start.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "start_date is in the future",
		})
		return
	}

	summary, err := h.orchestrator.SyncHistoryRange(start)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"summary": summary,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// SyncStatus returns the last sync run.
func (h *Handlers) SyncStatus(c *gin.Context) {
	run, err := h.orchestrator.GetLastSyncStatus()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if run == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"last_sync": nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"last_sync": run.StartedAt,
		"status":    run.Status,
		"summary": gin.H{
			"created": run.CreatedCount,
			"updated": run.UpdatedCount,
			"skipped": run.SkippedCount,
			"errored": run.ErroredCount,
			"total":   run.Total,
		},
	})
}

// ImportSpreadsheet reconciles cases from an uploaded xlsx file.
func (h *Handlers) ImportSpreadsheet(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "missing file upload",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "failed to open upload: " + err.Error(),
		})
		return
	}
	defer file.Close()

	summary, err := h.orchestrator.RecordImport(func() (*reconciler.Summary, error) {
		return h.importer.ImportFromSpreadsheet(file)
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"summary": summary,
	})
}

// NextStates lists the legal lifecycle transitions for a case.
func (h *Handlers) NextStates(c *gin.Context) {
	states, err := h.engine.NextStatesFor(c.Param("docket"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"states":  states,
	})
}

// AdvanceState applies a lifecycle transition to a case.
func (h *Handlers) AdvanceState(c *gin.Context) {
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "state is required",
		})
		return
	}

	err := h.engine.AdvanceState(c.Param("docket"), reconciler.State(req.State))
	if err != nil {
		var transErr *reconciler.TransitionError
		if errors.As(err, &transErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success":    false,
				"error":      transErr.Error(),
				"valid_next": transErr.ValidNext,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   req.State,
	})
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	var count int64
	dbHealthy := h.db.Model(&database.SyncRun{}).Count(&count).Error == nil

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealthy,
		"cache":    h.cache.Stats(),
		"time":     time.Now().Unix(),
	})
}

// CacheStats returns cache statistics
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.cache.Stats(),
	})
}
