package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/snapstyle/snapstyle-backend/pkg/app/recommendation"
	"github.com/snapstyle/snapstyle-backend/pkg/app/search"
	"github.com/snapstyle/snapstyle-backend/pkg/config"
	handlers "github.com/snapstyle/snapstyle-backend/pkg/handlers/http"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/cache"
	infraLogger "github.com/snapstyle/snapstyle-backend/pkg/infra/logger"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/providers/factory"
	"github.com/snapstyle/snapstyle-backend/pkg/infra/shopping"
	"github.com/snapstyle/snapstyle-backend/pkg/middleware"
	"github.com/snapstyle/snapstyle-backend/pkg/quota"
	"github.com/snapstyle/snapstyle-backend/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("./config"); err != nil {
		logger.WithError(err).Warn("config file not loaded, using defaults and environment")
	}
	cfg := config.GetConfig()

	// Shared state, constructed once and injected everywhere.
	tracker := quota.NewTracker(cfg.Shopping.DailyLimit, logger, nil)
	searchCache := cache.NewTTLMap(cfg.Cache.SearchTTL)
	sectionsCache := cache.NewTTLMap(cfg.Cache.SectionsTTL)

	sweeperStop := make(chan struct{})
	searchCache.StartSweeper(cfg.Cache.SweepInterval, sweeperStop)
	sectionsCache.StartSweeper(cfg.Cache.SweepInterval, sweeperStop)

	searcher := shopping.NewClient(cfg.Shopping.APIKey, logger, &shopping.ClientOpts{
		BaseURL: cfg.Shopping.BaseURL,
	})
	orchestrator := search.NewOrchestrator(searcher, tracker, searchCache, logger, nil)
	recommendations := recommendation.NewService(orchestrator, sectionsCache, logger, nil)

	providerLocator := factory.NewProviderLocator()
	describe, err := providerLocator.Get(cfg.Providers.Provider)
	if err != nil {
		logger.Fatalf("failed to initialize description provider: %v", err)
	}
	providerCfg := &providers.Config{
		Credentials: providers.Credentials{ApiKey: cfg.Providers.APIKey},
		Model:       cfg.Providers.Model,
	}

	tiers := handlers.NewHeaderTierResolver()

	middlewareTransport := middleware.Transport{
		RateLimiterMiddleware:  middleware.NewRateLimiterMiddleware(cfg.RateLimit.Routes, cfg.RateLimit.DefaultLimit, logger, nil),
		SecurityMiddleware:     middleware.NewSecurityMiddleware(logger),
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
	}

	handlerTransport := handlers.HandlerTransport{
		TextSearchHandler:      handlers.NewTextSearchHandler(logger, describe, providerCfg, orchestrator, tiers),
		ImageSearchHandler:     handlers.NewImageSearchHandler(logger, describe, providerCfg, orchestrator, tiers),
		SectionsHandler:        handlers.NewSectionsHandler(logger, recommendations, tiers),
		RecommendationsHandler: handlers.NewRecommendationsHandler(logger, recommendations),
		InvalidateUserHandler:  handlers.NewInvalidateUserHandler(logger, recommendations),
		QuotaStatusHandler:     handlers.NewQuotaStatusHandler(logger, tracker),
	}

	srv := server.NewApiServer(server.ApiServerDI{
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
		Config:              cfg,
		Logger:              logger,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	fmt.Println("shutting down server...")
	close(sweeperStop)
	if err := srv.Shutdown(); err != nil {
		fmt.Println("error shutting down server:", err)
		os.Exit(1)
	}
	fmt.Println("server gracefully stopped")
}
