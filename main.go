package main

import (
	"context"
	"log"
	"strings"

	api "github.com/Ct1869/omni-inbox-dash-sub000/cmd/api"
	accountdomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/domain"
	accountRepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/repository"
	accountUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/account/usecase"
	maildomain "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/domain"
	mailRepo "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/repository"
	mailUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/mail/usecase"
	outboundUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/outbound/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/provider"
	gmailProvider "github.com/Ct1869/omni-inbox-dash-sub000/internal/provider/gmail"
	outlookProvider "github.com/Ct1869/omni-inbox-dash-sub000/internal/provider/outlook"
	"github.com/Ct1869/omni-inbox-dash-sub000/internal/schedule"
	syncUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/sync/usecase"
	watchUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/watch/usecase"
	webhookUsecase "github.com/Ct1869/omni-inbox-dash-sub000/internal/webhook/usecase"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/config"
	"github.com/Ct1869/omni-inbox-dash-sub000/pkg/database"

	"golang.org/x/oauth2"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.OAuthTokenSet{},
		&maildomain.CachedMessage{},
		&maildomain.SyncJob{},
		&maildomain.WebhookQueueItem{},
		&maildomain.WatchRegistration{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	accounts := accountRepo.NewAccountRepository(db)
	tokens := accountRepo.NewTokenRepository(db)
	messages := mailRepo.NewMessageRepository(db)
	jobs := mailRepo.NewSyncJobRepository(db)
	queue := mailRepo.NewWebhookQueueRepository(db)
	watches := mailRepo.NewWatchRegistrationRepository(db)

	// OAuth endpoint configurations per provider
	oauthConfigs := map[string]*oauth2.Config{
		accountdomain.ProviderGmail:   accountUsecase.GoogleOAuthConfig(cfg),
		accountdomain.ProviderOutlook: accountUsecase.MicrosoftOAuthConfig(cfg),
	}

	tokenStore := accountUsecase.NewTokenStore(tokens, accounts, watches, oauthConfigs)

	// Extract short topic name from full resource name if necessary
	topicName := cfg.GooglePubSubTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}

	// Provider adapters
	adapters := map[string]provider.Adapter{
		accountdomain.ProviderGmail:   gmailProvider.NewAdapter(topicName),
		accountdomain.ProviderOutlook: outlookProvider.NewAdapter(cfg.WebhookBaseURL+"/api/webhooks/outlook", cfg.WebhookClientState),
	}

	// Initialize use cases (dependency injection)
	accountService := accountUsecase.NewAccountService(accounts, tokens, oauthConfigs)
	reconciler := mailUsecase.NewReconciler(messages, accounts)
	syncService := syncUsecase.NewSyncService(accounts, jobs, tokenStore, reconciler, adapters, cfg.SyncJobTimeout, cfg.StaleJobThreshold)
	ingress := webhookUsecase.NewIngress(accounts, watches, queue, cfg.WebhookClientState)
	processor := webhookUsecase.NewProcessor(queue, syncService.Sync, cfg.StaleJobThreshold)
	renewer := watchUsecase.NewRenewer(watches, accounts, tokenStore, adapters)
	actions := outboundUsecase.NewActionService(accounts, messages, tokenStore, adapters)

	// Pull-based Gmail notification listener, only when a project is configured
	if cfg.GoogleProjectID != "" {
		listener, err := webhookUsecase.NewPubSubListener(context.Background(), cfg.GoogleProjectID, topicName, cfg.GoogleCredentials, ingress)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Pub/Sub listener: %v", err)
		} else {
			go listener.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GOOGLE_PROJECT_ID not configured, Pub/Sub listener disabled")
	}

	// Background loops: queue draining, watch renewal, stale-job watchdog
	scheduler := schedule.NewScheduler(processor, renewer, syncService)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(cfg, accountService, syncService, ingress, processor, renewer, actions)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
