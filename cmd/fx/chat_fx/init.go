package chat_fx

import (
	"net/http"

	"go.uber.org/fx"
	"gorm.io/gorm"
	"mealrelay/internal/clients"
	"mealrelay/internal/config"
	"mealrelay/internal/repositories"
	"mealrelay/internal/services"
)

var Module = fx.Provide(
	provideWebhookClient,
	provideActivityRepo,
	provideHistoryRepo,
	provideChatRelayService)

func provideWebhookClient(cfg *config.Config) clients.WebhookClientInterface {
	return clients.NewWebhookClient(cfg, &http.Client{})
}

func provideActivityRepo(db *gorm.DB) repositories.ActivityRepository {
	if db == nil {
		return nil
	}
	return repositories.NewActivityRepository(db)
}

func provideHistoryRepo(db *gorm.DB) repositories.ChatHistoryRepository {
	if db == nil {
		return nil
	}
	return repositories.NewChatHistoryRepository(db)
}

func provideChatRelayService(
	cfg *config.Config,
	webhook clients.WebhookClientInterface,
	activity repositories.ActivityRepository,
	history repositories.ChatHistoryRepository,
) services.ChatRelayServiceInterface {
	return services.NewChatRelayService(cfg, webhook, activity, history)
}
