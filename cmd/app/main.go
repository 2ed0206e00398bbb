package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"mealrelay/cmd/fx/chat_fx"
	"mealrelay/cmd/fx/config_fx"
	"mealrelay/cmd/fx/controllers_fx"
	"mealrelay/cmd/fx/db_fx"
	"mealrelay/internal/api"
	"mealrelay/internal/config"
	"mealrelay/pkg/metrics"
)

func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		chat_fx.Module,
		controllers_fx.Module,

		fx.Provide(api.NewRouter),
		fx.Invoke(metrics.Register),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine) {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			go func() {
				log.WithFields(log.Fields{
					"addr":    server.Addr,
					"format":  cfg.PayloadFormat,
					"timeout": cfg.WebhookTimeout.String(),
				}).Info("starting HTTP server")
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Fatal("HTTP server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}
