package delivery

import (
	"errors"
	"net/http"

	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/outbound/usecase"

	"github.com/gin-gonic/gin"
)

// ActionHandler handles outbound mail actions
type ActionHandler struct {
	actions *usecase.ActionService
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(actions *usecase.ActionService) *ActionHandler {
	return &ActionHandler{
		actions: actions,
	}
}

// SendRequest represents the request body for sending a message
type SendRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// BulkRequest represents the request body for a bulk message action
type BulkRequest struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
	Action     string   `json:"action" binding:"required"`
}

// Send sends a message through the account's provider
// POST /api/accounts/:id/send
func (h *ActionHandler) Send(c *gin.Context) {
	accountID := c.Param("id")

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messageID, err := h.actions.Send(c.Request.Context(), accountID, req.To, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, accountusecase.ErrAuthExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account authorization expired, reconnect required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Message sent successfully",
		"message_id": messageID,
	})
}

// Bulk applies one action to a batch of messages
// POST /api/accounts/:id/messages/bulk
func (h *ActionHandler) Bulk(c *gin.Context) {
	accountID := c.Param("id")

	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.actions.Bulk(c.Request.Context(), accountID, req.MessageIDs, req.Action); err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnknownAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, accountusecase.ErrAuthExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account authorization expired, reconnect required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bulk action applied successfully",
		"count":   len(req.MessageIDs),
	})
}
