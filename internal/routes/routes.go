package routes

import (
	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/handlers"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/middleware"
	"hrportal_backend/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	tokens *auth.TokenManager,
) {
	// Служебные
	ginRouter.GET("/health", appHandlers.HealthHandler.Health)
	ginRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := ginRouter.Group("/api")
	api.GET("/roles", handlers.GetRoles)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		appHandlers.NotificationHandler.RegisterRoutes(protected)
		appHandlers.TicketHandler.RegisterRoutes(protected)
	}

	// WebSocket: токен в ?token= или в заголовке, проверяет сам хэндлер
	ginRouter.GET("/ws", wsHandler.ServeWS)
	logger.Info("WebSocket route /ws registered")
}
