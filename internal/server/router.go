package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/coursebridge/migration-backend/internal/http/handlers"
	"github.com/coursebridge/migration-backend/internal/http/middleware"
)

type RouterConfig struct {
	MigrationHandler *handlers.MigrationHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireOperator())
	// Migration
	api.POST("/migrate/learndash", cfg.MigrationHandler.Step)
	api.DELETE("/migrate/learndash/progress", cfg.MigrationHandler.ClearProgress)
	api.GET("/migrate/learndash/status", cfg.MigrationHandler.Status)

	return router
}
