package api

import (
	accountDelivery "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/delivery"
	accountUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	outboundDelivery "github.com/Ct1869/omni-inbox-dash-sub000/internal/outbound/delivery"
	outboundUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/outbound/usecase"
	syncDelivery "github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/delivery"
	syncUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/usecase"
	watchDelivery "github.com/Ct1869/omni-inbox-dash-sub000/internal/watch/delivery"
	watchUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/watch/usecase"
	webhookDelivery "github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/delivery"
	webhookUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	config         *config.Config
	accountHandler *accountDelivery.AccountHandler
	syncHandler    *syncDelivery.SyncHandler
	webhookHandler *webhookDelivery.WebhookHandler
	watchHandler   *watchDelivery.WatchHandler
	actionHandler  *outboundDelivery.ActionHandler
}

func NewHandler(
	cfg *config.Config,
	accountService accountUsecase.AccountService,
	syncService *syncUsecase.SyncService,
	ingress *webhookUsecase.Ingress,
	processor *webhookUsecase.Processor,
	renewer *watchUsecase.Renewer,
	actions *outboundUsecase.ActionService,
) *Handler {
	return &Handler{
		config:         cfg,
		accountHandler: accountDelivery.NewAccountHandler(accountService),
		syncHandler:    syncDelivery.NewSyncHandler(syncService, processor),
		webhookHandler: webhookDelivery.NewWebhookHandler(ingress, processor),
		watchHandler:   watchDelivery.NewWatchHandler(renewer),
		actionHandler:  outboundDelivery.NewActionHandler(actions),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)

	return r.Run(addr)
}
