package config_fx

import (
	"go.uber.org/fx"
	"mealrelay/internal/config"
)

var Module = fx.Provide(config.Load)
