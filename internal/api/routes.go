package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nico19422009/mcauto/internal/api/handlers"
	"github.com/nico19422009/mcauto/internal/api/middleware"
	"github.com/nico19422009/mcauto/internal/backup"
	"github.com/nico19422009/mcauto/internal/config"
	"github.com/nico19422009/mcauto/internal/mojang"
	"github.com/nico19422009/mcauto/internal/provision"
	"github.com/nico19422009/mcauto/internal/session"
)

// SetupRouter configures and returns the HTTP router
func SetupRouter(
	cfg *config.Config,
	provisioner *provision.Provisioner,
	supervisor *session.Supervisor,
	coordinator *backup.Coordinator,
	store *backup.Store,
	mojangClient *mojang.Client,
) *gin.Engine {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	serverHandler := handlers.NewServerHandler(cfg.Storage.ServersDir, provisioner, supervisor)
	backupHandler := handlers.NewBackupHandler(cfg.Storage.ServersDir, coordinator, store)
	versionHandler := handlers.NewVersionHandler(mojangClient)
	consoleHandler := handlers.NewConsoleHandler(cfg.Storage.ServersDir)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/versions", versionHandler.ListVersions)

		servers := v1.Group("/servers")
		{
			servers.GET("", serverHandler.ListServers)
			servers.POST("", serverHandler.CreateServer)
			servers.GET("/:name", serverHandler.GetServer)
			servers.POST("/:name/start", serverHandler.StartServer)
			servers.POST("/:name/stop", serverHandler.StopServer)
			servers.POST("/:name/restart", serverHandler.RestartServer)
			servers.GET("/:name/status", serverHandler.GetServerStatus)
			servers.POST("/:name/command", serverHandler.ExecuteCommand)
			servers.GET("/:name/console", serverHandler.GetConsole)

			servers.GET("/:name/backups", backupHandler.ListBackups)
			servers.POST("/:name/backups", backupHandler.CreateBackup)
			servers.GET("/:name/schedules", backupHandler.ListSchedules)
			servers.POST("/:name/schedules", backupHandler.CreateSchedule)
		}

		backups := v1.Group("/backups")
		{
			backups.GET("/:id", backupHandler.GetBackup)
			backups.DELETE("/:id", backupHandler.DeleteBackup)
			backups.POST("/:id/restore", backupHandler.RestoreBackup)
		}

		v1.DELETE("/schedules/:id", backupHandler.DeleteSchedule)

		v1.GET("/ws/console/:name", consoleHandler.HandleConsoleWebSocket)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router
}
