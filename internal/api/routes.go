package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/collisionlab/internal/admin"
	"github.com/playmatatu/collisionlab/internal/api/handlers"
	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/playmatatu/collisionlab/internal/lab"
	"github.com/playmatatu/collisionlab/internal/middleware"
)

// SetupRoutes configures all API routes. db may be nil, in which case only
// built-in presets are served and the admin routes are not registered.
func SetupRoutes(router *gin.Engine, db *sqlx.DB, m *lab.LabManager, cfg *config.Config) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Next()
		})
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(m))
		v1.GET("/presets", handlers.ListPresets(db))

		// Lab endpoints
		labs := v1.Group("/labs")
		{
			labs.POST("", handlers.CreateLab(db, m, cfg))
			labs.GET("/:token", handlers.GetLabState(m))
			labs.DELETE("/:token", handlers.DeleteLab(m))
			labs.POST("/:token/play", handlers.LabAction(m, (*lab.Lab).Play))
			labs.POST("/:token/pause", handlers.LabAction(m, (*lab.Lab).Pause))
			labs.POST("/:token/reset", handlers.LabAction(m, (*lab.Lab).Reset))
			labs.POST("/:token/step", handlers.StepLab(m))
			labs.PATCH("/:token/settings", handlers.UpdateSettings(m))
			labs.PUT("/:token/balls/:index", handlers.UpdateBall(m))
			labs.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleLabWebSocket(m))
		}

		if db == nil {
			log.Println("[API] No database configured; admin routes disabled")
			return
		}

		// Admin endpoints
		adm := v1.Group("/admin")
		{
			adm.POST("/login", handlers.AdminLogin(db, cfg))

			authed := adm.Group("", middleware.AdminAuth(cfg, admin.RoleSuperAdmin, admin.RolePresetEditor))
			authed.POST("/presets", handlers.CreatePreset(db))
			authed.DELETE("/presets/:name", handlers.DeletePreset(db))
			authed.GET("/audit", handlers.ListAuditLogs(db))
		}
	}
}
