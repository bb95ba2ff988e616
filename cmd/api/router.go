package api

import (
	"net/http"

	"github.com/Ct1869/omni-inbox-dash-sub000/internal/account/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Webhook routes (no auth: callers are the providers themselves,
		// verified by payload contents instead of a bearer token)
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/gmail", h.webhookHandler.GmailPush)
			webhooks.POST("/outlook", h.webhookHandler.OutlookWebhook)
			webhooks.GET("/outlook", h.webhookHandler.OutlookWebhook)
			webhooks.POST("/process", h.webhookHandler.ProcessQueue)
		}

		// Account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(delivery.AuthMiddleware(h.config.JWTSecret))
		{
			accounts.GET("", h.accountHandler.List)
			accounts.POST("/connect", h.accountHandler.Connect)
			accounts.POST("/:id/sync", h.syncHandler.TriggerSync)
			accounts.POST("/:id/watch", h.watchHandler.Register)
			accounts.POST("/:id/send", h.actionHandler.Send)
			accounts.POST("/:id/messages/bulk", h.actionHandler.Bulk)
		}

		// Maintenance routes (protected)
		maintenance := api.Group("")
		maintenance.Use(delivery.AuthMiddleware(h.config.JWTSecret))
		{
			maintenance.POST("/watches/renew", h.watchHandler.RenewExpiring)
			maintenance.POST("/jobs/cleanup", h.syncHandler.CleanupStuckJobs)
		}
	}
}
