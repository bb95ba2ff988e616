package delivery

import (
	"errors"
	"net/http"
	"strconv"

	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/usecase"
	webhookusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/usecase"

	"github.com/gin-gonic/gin"
)

// SyncHandler handles sync-related HTTP requests
type SyncHandler struct {
	syncService *usecase.SyncService
	processor   *webhookusecase.Processor
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *usecase.SyncService, processor *webhookusecase.Processor) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		processor:   processor,
	}
}

// TriggerSync starts a bounded sync run for one account
// POST /api/accounts/:id/sync?max=500&pageToken=...
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	accountID := c.Param("id")
	maxMessages, _ := strconv.Atoi(c.DefaultQuery("max", "0"))
	pageToken := c.Query("pageToken")

	result, err := h.syncService.Sync(c.Request.Context(), accountID, maxMessages, pageToken)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAlreadySyncing):
			c.JSON(http.StatusConflict, gin.H{"error": "a sync is already in progress for this account"})
		case errors.Is(err, accountusecase.ErrAuthExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account authorization expired, reconnect required"})
		case errors.Is(err, usecase.ErrSyncTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// CleanupStuckJobs sweeps stale processing jobs and queue items
// POST /api/jobs/cleanup
func (h *SyncHandler) CleanupStuckJobs(c *gin.Context) {
	cleaned, err := h.syncService.CleanupStuckJobs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	queueCleaned, err := h.processor.ReclaimStale()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cleaned_up":       cleaned,
		"queue_cleaned_up": queueCleaned,
	})
}
