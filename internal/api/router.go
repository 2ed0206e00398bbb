package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"mealrelay/internal/api/controllers"
	"mealrelay/internal/config"
	"mealrelay/pkg/middleware"
)

func NewRouter(cfg *config.Config, chatController *controllers.ChatController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin, cfg.AllowedHeaders))
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, cfg, chatController)

	return r
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, chatController *controllers.ChatController) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "mealrelay"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatGroup := r.Group("/chat")
	chatGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	chatGroup.POST("", chatController.Chat)
	chatGroup.POST("/stream", chatController.StreamChat)
	chatGroup.GET("/history/:sessionId", chatController.History)
}
