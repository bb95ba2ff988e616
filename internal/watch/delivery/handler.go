package delivery

import (
	"errors"
	"net/http"

	accountusecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/watch/usecase"

	"github.com/gin-gonic/gin"
)

// WatchHandler handles push-registration HTTP requests
type WatchHandler struct {
	renewer *usecase.Renewer
}

// NewWatchHandler creates a new WatchHandler
func NewWatchHandler(renewer *usecase.Renewer) *WatchHandler {
	return &WatchHandler{
		renewer: renewer,
	}
}

// Register creates or refreshes the push registration for an account
// POST /api/accounts/:id/watch
func (h *WatchHandler) Register(c *gin.Context) {
	accountID := c.Param("id")

	reg, err := h.renewer.Register(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, accountusecase.ErrAuthExpired) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account authorization expired, reconnect required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, reg)
}

// RenewExpiring renews every active registration close to its expiry
// POST /api/watches/renew
func (h *WatchHandler) RenewExpiring(c *gin.Context) {
	stats, err := h.renewer.RenewExpiring(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}
