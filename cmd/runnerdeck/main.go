package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xela07ax/runnerdeck/internal/cache"
	"github.com/xela07ax/runnerdeck/internal/console/handler"
	"github.com/xela07ax/runnerdeck/internal/console/server"
	"github.com/xela07ax/runnerdeck/internal/console/service"
	"github.com/xela07ax/runnerdeck/internal/dashboard"
	"github.com/xela07ax/runnerdeck/internal/infra"
	"github.com/xela07ax/runnerdeck/internal/infra/auth"
	"github.com/xela07ax/runnerdeck/internal/infra/secrets"
	"github.com/xela07ax/runnerdeck/internal/provider"
	"github.com/xela07ax/runnerdeck/internal/repository/postgres"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 2. Ключевой материал: RS256 для токенов, secretbox для кредов в БД
	publicKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("Failed to parse RSA public key", zap.Error(err))
	}
	privateKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("Failed to parse RSA private key", zap.Error(err))
	}

	box, err := secrets.NewBox(cfg.Auth.SecretsKey)
	if err != nil {
		logger.Fatal("Invalid SECRETS_KEY", zap.Error(err))
	}

	// 3. PostgreSQL: пул, проверка соединения, миграция схемы
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := postgres.NewStore(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to init postgres pool", zap.Error(err))
	}
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		pingCancel()
		logger.Fatal("Database unreachable", zap.Error(err))
	}
	pingCancel()

	if err := store.Migrate(appCtx); err != nil {
		logger.Fatal("Schema migration failed", zap.Error(err))
	}

	// 4. Метрики и кэш
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)
	ttlCache := cache.New(cfg.Cache.TTL, metrics, logger)

	// 5. Провайдеры: по одному клиенту на каждого (у каждого свой
	// circuit breaker и rate limiter)
	githubClient := provider.NewClient("github", cfg.Providers, metrics, logger)
	jiraClient := provider.NewClient("jira", cfg.Providers, metrics, logger)
	adoClient := provider.NewClient("azure-devops", cfg.Providers, metrics, logger)

	github := provider.NewGitHub("", cfg.Providers, githubClient, ttlCache, logger)
	jira := provider.NewJira(cfg.Providers, jiraClient, logger)
	ado := provider.NewAzureDevOps("", cfg.Providers, adoClient, ttlCache, logger)

	// 6. Бизнес-слой: агрегатор дашбордов, композер health, сервисы
	aggregator := dashboard.NewAggregator(store, box, github, ado, cfg.Providers.DetailWorkers, logger)
	composer := dashboard.NewComposer(store, box, github, jira, ado, logger)

	validator := auth.NewBaseValidator(publicKey)
	authService := service.NewAuthService(store, validator, privateKey, cfg.Auth.TokenTTL, cfg.Auth.BcryptCost)
	settingsService := service.NewSettingsService(store, box, ttlCache, github, ado, logger)

	// 7. HTTP-слой
	authHandler := handler.NewAuthHandler(authService)
	dashHandler := handler.NewDashboardHandler(aggregator, jira, store, box)
	systemHandler := handler.NewSystemHandler(composer, cfg.App.Version)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	adoHandler := handler.NewADOHandler(settingsService)

	consoleSrv := server.NewConsoleServer(
		cfg, logger,
		authService,
		authHandler, dashHandler, systemHandler, settingsHandler, adoHandler,
		reg,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Runnerdeck started", zap.String("addr", srv.Addr), zap.String("version", cfg.App.Version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("Runnerdeck stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server shutdown failed", zap.Error(err))
	}
	logger.Info("Runnerdeck exited properly")
}
