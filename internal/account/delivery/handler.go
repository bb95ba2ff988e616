package delivery

import (
	"net/http"

	"github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService usecase.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService usecase.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// ConnectRequest represents the request body for connecting a mailbox
type ConnectRequest struct {
	Provider string `json:"provider" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// Connect exchanges an OAuth authorization code and registers the mailbox
// POST /api/accounts/connect
func (h *AccountHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accountService.Connect(c.Request.Context(), req.Provider, req.Email, req.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, account)
}

// List returns all active connected mailboxes
// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accountService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts": accounts,
		"total":    len(accounts),
	})
}
