package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"taller-backend/internal/config"
	"taller-backend/internal/database"
	"taller-backend/internal/db"
	"taller-backend/internal/handlers"
	"taller-backend/internal/health"
	h "taller-backend/internal/http"
	"taller-backend/internal/identity"
	"taller-backend/internal/media"
	"taller-backend/internal/middleware"
	"taller-backend/internal/repositories"
	"taller-backend/internal/services"
	"taller-backend/migrations"

	"github.com/joho/godotenv"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// .env is optional; viper picks the variables up either way
	godotenv.Load()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx := context.Background()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool, migrations.FS)
	if err := migrator.Run(ctx); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	backend, err := services.NewStorageBackend(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Photo storage backend: %s", backend.Name())

	staging, err := media.NewStaging(cfg.Media.StagingDir, cfg.Media.CameraSpool, cfg.Media.JPEGQuality)
	if err != nil {
		log.Fatalf("Failed to initialize photo staging: %v", err)
	}

	if cfg.Identity.Token == "" {
		log.Println("Warning: identity API token not configured; DNI lookups will be rejected")
	}
	identityClient := identity.NewClient(cfg.Identity.BaseURL, cfg.Identity.Token)

	// Repositories
	equipmentRepo := repositories.NewEquipmentRepository(pool)

	// Services
	uploadService := services.NewPhotoUploadService(backend, staging)
	intakeService := services.NewIntakeService(identityClient, staging, uploadService, equipmentRepo, cfg.Identity.Token != "")
	searchService := services.NewSearchService(equipmentRepo)

	// Handlers
	draftHandler := handlers.NewDraftHandler(intakeService)
	equipmentHandler := handlers.NewEquipmentHandler(searchService)
	healthHandler := health.NewHandler(pool, cfg.Media.StagingDir)

	localMediaDir := ""
	if cfg.Storage.Backend == "local" {
		localMediaDir = cfg.Storage.LocalDir
	}

	router := h.NewRouter(draftHandler, equipmentHandler, healthHandler, localMediaDir)
	corsMiddleware := middleware.NewCORS(cfg)
	handler := corsMiddleware(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
