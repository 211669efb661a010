package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mandala/internal/api/middleware"
	"mandala/internal/auth"
	"mandala/internal/session"
	"mandala/internal/storage"
	"mandala/internal/store"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	st store.Store,
	sessions *session.Manager,
	gate *auth.PinGate,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	storageClient *storage.Client,
	logger *slog.Logger,
	internalSecret string,
	allowedOrigins []string,
) {
	userHandler := NewUserHandler(st, gate, sessions, storageClient, logger)
	adminHandler := NewAdminHandler(gate, redisClient, logger)
	chartHandler := NewChartHandler(st, sessions)
	messageHandler := NewMessageHandler(st, sessions, gate, redisClient)
	exportHandler := NewExportHandler(db, st, sessions, asynqClient, storageClient)
	wsHandler := NewWsHandler(redisClient, logger, allowedOrigins)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws/:userId", wsHandler.HandleConnection)

		v1.GET("/users", userHandler.ListUsers)
		v1.POST("/users", userHandler.CreateUser)
		v1.DELETE("/users/:id", userHandler.DeleteUser)

		v1.POST("/admin/verify", adminHandler.VerifyPin)

		chartGroup := v1.Group("/charts/:userId")
		{
			chartGroup.GET("", chartHandler.OpenChart)
			chartGroup.PUT("/cells", chartHandler.UpdateCell)
			chartGroup.PUT("/title", chartHandler.SetTitle)
			chartGroup.POST("/generate", chartHandler.Generate)
			chartGroup.DELETE("/session", chartHandler.CloseChart)

			chartGroup.GET("/messages", messageHandler.ListMessages)
			chartGroup.POST("/messages", messageHandler.CreateMessage)

			chartGroup.POST("/export", exportHandler.CreateExport)
		}

		v1.PUT("/messages/:id/position", messageHandler.MoveMessage)
		v1.DELETE("/messages/:id", messageHandler.DeleteMessage)

		v1.GET("/exports/:id", exportHandler.GetExport)
		v1.GET("/exports/:id/link", exportHandler.GetExportLink)

		internalGroup := v1.Group("/internal")
		internalGroup.Use(middleware.InternalSecret(internalSecret))
		{
			internalGroup.GET("/exports/:id/data", exportHandler.GetExportData)
		}
	}
}
