package db_fx

import (
	"context"

	"github.com/apex/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"mealrelay/internal/config"
	"mealrelay/internal/infra"
)

var Module = fx.Provide(
	provideDB)

// provideDB returns a nil *gorm.DB when POSTGRES_URL is unset; the relay then
// runs without activity tracking or history.
func provideDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	if !cfg.HistoryEnabled() {
		log.Info("POSTGRES_URL not set, running without persistence")
		return nil, nil
	}

	db, err := infra.InitPostgresql(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			infra.ClosePostgresql(db)
			return nil
		},
	})
	return db, nil
}
