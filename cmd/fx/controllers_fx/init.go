package controllers_fx

import (
	"go.uber.org/fx"
	"mealrelay/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewChatController))
