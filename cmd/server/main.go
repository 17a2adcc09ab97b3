package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nico19422009/mcauto/internal/api"
	"github.com/nico19422009/mcauto/internal/backup"
	"github.com/nico19422009/mcauto/internal/config"
	"github.com/nico19422009/mcauto/internal/database"
	"github.com/nico19422009/mcauto/internal/fetch"
	"github.com/nico19422009/mcauto/internal/logging"
	"github.com/nico19422009/mcauto/internal/mojang"
	"github.com/nico19422009/mcauto/internal/provision"
	"github.com/nico19422009/mcauto/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := setupLogging(cfg); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logging.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg)
		return
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Supervision
	screen := session.NewScreen(session.NewShellExecutor())
	supervisor := session.NewSupervisor(screen, cfg.Java.Path)

	// Provisioning
	mojangClient := mojang.NewClient()
	provisioner := provision.NewProvisioner(
		fetch.NewFetcher(),
		mojangClient,
		cfg.Storage.JarsDir,
		cfg.Storage.ServersDir,
	)
	provisioner.JavaPath = cfg.Java.Path
	provisioner.DefaultMemory = cfg.Java.DefaultMemory

	// Backups
	store := backup.NewStore(db)
	coordinator := backup.NewCoordinator(supervisor, store)
	coordinator.DefaultDir = cfg.Storage.BackupDir

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Backups.SchedulerEnabled {
		log.Println("Starting backup schedule runner...")
		scheduler := backup.NewScheduleRunner(coordinator, store, cfg.Storage.ServersDir)
		scheduler.Start(ctx)
	}

	log.Println("All components initialized")

	router := api.SetupRouter(cfg, provisioner, supervisor, coordinator, store, mojangClient)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupLogging(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Logging.File) == "" {
		dataDir := cfg.Storage.DataDir
		if dataDir == "" {
			dataDir = "./data"
		}
		cfg.Logging.File = filepath.Join(dataDir, "logs", "server.log")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
		return err
	}
	logging.Init(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
	return nil
}

func runMigrations(cfg *config.Config) {
	log.Println("Running database migrations...")

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}
