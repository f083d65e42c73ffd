package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	database "github.com/analyticalinvestments/omega-api/app/db"
	appLogger "github.com/analyticalinvestments/omega-api/app/logger"
	"github.com/analyticalinvestments/omega-api/app/observability/metrics"
	"github.com/analyticalinvestments/omega-api/app/tracer"
	"github.com/analyticalinvestments/omega-api/config"
	"github.com/analyticalinvestments/omega-api/internal/api/auth"
	"github.com/analyticalinvestments/omega-api/internal/api/billing"
	"github.com/analyticalinvestments/omega-api/internal/api/chat"
	"github.com/analyticalinvestments/omega-api/internal/api/course"
	generativeAI "github.com/analyticalinvestments/omega-api/internal/api/generative_ai"
	"github.com/analyticalinvestments/omega-api/internal/api/market"
	"github.com/analyticalinvestments/omega-api/internal/api/portfolio"
	apiRouter "github.com/analyticalinvestments/omega-api/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// The session secret has no default. Refusing to start beats running
	// with a guessable secret.
	cfg.Auth.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.Auth.SessionSecret == "" {
		log.Fatal("FATAL: SESSION_SECRET environment variable is not set")
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsHandler, err := tracer.InitTracingAndMetrics()
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations before opening the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- OAuth Providers ---
	if err := auth.SetupOAuthProviders(cfg.Auth); err != nil {
		logger.Error("Failed to set up OAuth providers", slog.Any("error", err))
		os.Exit(1)
	}

	// --- AI Client ---
	aiClient, err := generativeAI.NewAIClient(ctx, cfg.AI)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency Injection ---
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	sessionManager := auth.NewPgSessionManager(pool, authRepo, cfg.Auth.SessionTTL, logger)
	authService := auth.NewAuthService(authRepo, sessionManager, logger)
	authHandler := auth.NewAuthHandler(authService, cfg.Auth, logger)
	authMiddleware := auth.NewMiddleware(sessionManager, cfg.Auth.CookieName, logger)

	courseRepo := course.NewPostgresCourseRepo(pool, logger)
	courseHandler := course.NewCourseHandler(courseRepo, logger)

	chatRepo := chat.NewPostgresChatRepo(pool, logger)
	chatService := chat.NewChatService(chatRepo, aiClient, logger)
	chatHandler := chat.NewChatHandler(chatService, logger)

	portfolioRepo := portfolio.NewPostgresPortfolioRepo(pool, logger)
	portfolioHandler := portfolio.NewPortfolioHandler(portfolioRepo, logger)

	marketRepo := market.NewPostgresMarketRepo(pool, logger)
	marketHandler := market.NewMarketHandler(marketRepo, logger)

	billingService := billing.NewBillingService(authRepo, logger)
	billingHandler := billing.NewBillingHandler(billingService, logger)

	// --- Router Setup ---
	mainRouter := apiRouter.SetupRouter(&apiRouter.Config{
		AuthHandler:      authHandler,
		CourseHandler:    courseHandler,
		ChatHandler:      chatHandler,
		PortfolioHandler: portfolioHandler,
		MarketHandler:    marketHandler,
		BillingHandler:   billingHandler,
		Authenticate:     authMiddleware.Authenticate,
		RequireOmegaPlan: authMiddleware.RequireOmegaPlan,
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Servers ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	metricsSrv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Handlers.Prometheus.Port),
		Handler:     metricsHandler,
		ReadTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
