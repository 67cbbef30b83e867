package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"plantdoc/internal/config"
	"plantdoc/internal/logger"
	"plantdoc/internal/repository/sqlite"
	"plantdoc/internal/route"
	"plantdoc/internal/service"
	"plantdoc/internal/service/diagnosis"
	"plantdoc/internal/service/prediction"
	"plantdoc/internal/service/render"
	"plantdoc/internal/service/storage"
	"plantdoc/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds the diagnosis server and its services.
type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hubService *websocket.HubService
	handler    http.Handler
}

// NewApp loads the configuration and wires every service.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	diagnosisRepo := sqlite.NewDiagnosisRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	store := storage.NewResultStore(cfg, log, diagnosisRepo, detectionRepo)
	hub := websocket.NewHubService(log)

	manager := service.NewManager(cfg, log,
		prediction.NewClient(cfg, log),
		diagnosis.NewDiagnoser(cfg.HealthyClasses, cfg.DiseaseClasses),
		render.NewRenderer(cfg),
		store,
		hub,
	)

	if cfg.PredictionUsername == "" || cfg.PredictionAPIKey == "" {
		log.Warning("BIGML_USERNAME or BIGML_API_KEY is not set, predictions will be rejected")
	}

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		hubService: hub,
		handler: route.SetupRoutes(route.Dependencies{
			Config:        cfg,
			Logger:        log,
			Manager:       manager,
			Store:         store,
			Hub:           hub,
			DiagnosisRepo: diagnosisRepo,
			DetectionRepo: detectionRepo,
		}),
	}, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("🌱 Plant Disease Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Results: %s\n", a.config.ImageDirectory)
	fmt.Printf("🤖 Model: %s\n", a.config.PredictionModel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *App) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database: %v", err)
	}
	a.logger.Close()
}
