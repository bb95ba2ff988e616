package delivery

import (
	"net/http"

	"github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/usecase"

	"github.com/gin-gonic/gin"
)

// WebhookHandler handles provider push notifications and queue maintenance
type WebhookHandler struct {
	ingress   *usecase.Ingress
	processor *usecase.Processor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingress *usecase.Ingress, processor *usecase.Processor) *WebhookHandler {
	return &WebhookHandler{
		ingress:   ingress,
		processor: processor,
	}
}

// GmailPush receives a Pub/Sub push delivery of a Gmail notification.
// Anything but a 2xx makes Pub/Sub redeliver, so malformed payloads are
// acknowledged and logged rather than bounced.
// POST /api/webhooks/gmail
func (h *WebhookHandler) GmailPush(c *gin.Context) {
	var envelope usecase.PubSubPushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "error": err.Error()})
		return
	}

	enqueued, err := h.ingress.HandleGmailPush(&envelope)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "enqueued": enqueued})
}

// OutlookWebhook handles both halves of the Graph webhook contract: the
// validation handshake (validationToken echoed back as plain text) and
// change-notification batches.
// POST|GET /api/webhooks/outlook
func (h *WebhookHandler) OutlookWebhook(c *gin.Context) {
	if token := c.Query("validationToken"); token != "" {
		c.String(http.StatusOK, token)
		return
	}

	var batch usecase.OutlookNotificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored", "error": err.Error()})
		return
	}

	enqueued, err := h.ingress.HandleOutlookBatch(&batch)
	if err != nil {
		// The rows already enqueued stand; Graph retries the batch either way
		c.JSON(http.StatusAccepted, gin.H{"status": "partial", "enqueued": enqueued, "error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "ok", "enqueued": enqueued})
}

// ProcessQueue runs one drain pass over the webhook queue
// POST /api/webhooks/process
func (h *WebhookHandler) ProcessQueue(c *gin.Context) {
	stats, err := h.processor.ProcessQueue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
