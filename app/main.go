// Файл: main.go

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"license-system/internal/directory"
	"license-system/internal/directory/workspace"
	"license-system/internal/entities"
	"license-system/internal/listeners"
	"license-system/internal/repositories"
	"license-system/internal/routes"
	"license-system/internal/services"
	"license-system/pkg/config"
	"license-system/pkg/database/postgresql"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/eventbus"
	applogger "license-system/pkg/logger"
	"license-system/pkg/utils"
)

func main() {
	// 1. Базовые экземпляры Echo и логгера
	e := echo.New()
	logger := applogger.NewLogger()
	defer logger.Sync()

	// 2. Конфиг (сам подхватывает .env)
	cfg := config.New()

	// 3. Middleware: паника не должна ронять процесс
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{"Content-Disposition"},
	}))

	// 4. Подключения к базам
	dbConn := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbConn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	// 5. Репозитории
	txManager := repositories.NewTxManager(dbConn)
	employeeRepo := repositories.NewEmployeeRepository(dbConn, logger)
	integrationRepo := repositories.NewIntegrationRepository(dbConn, logger)
	subscriptionRepo := repositories.NewSubscriptionRepository(dbConn, logger)
	alertRepo := repositories.NewAlertRepository(dbConn, txManager, logger)
	queueRepo := repositories.NewRedisJobQueueRepository(redisClient)

	// 6. Реестр провайдеров каталога. Сейчас один провайдер, но реестр
	// оставляет место под следующие без переделки оркестратора.
	registry := directory.NewRegistry()
	refreshFn := workspace.NewRefreshFunc(
		&http.Client{Timeout: cfg.Directory.HTTPTimeout},
		cfg.Directory.TokenURL, cfg.Directory.ClientID, cfg.Directory.ClientSecret,
	)
	if err := registry.Register("workspace", func(integrationID uint64, tokens directory.Tokens) (directory.Provider, error) {
		manager := directory.NewTokenManager(integrationID, tokens, refreshFn, integrationRepo, logger)
		return workspace.New(workspace.Options{
			BaseURL:    cfg.Directory.BaseURL,
			CustomerID: cfg.Directory.CustomerID,
			Timeout:    cfg.Directory.HTTPTimeout,
			Retry: directory.RetryPolicy{
				Attempts: cfg.Directory.RetryAttempts,
				BaseWait: cfg.Directory.RetryBaseWait,
			},
		}, manager, logger), nil
	}); err != nil {
		logger.Fatal("Не удалось зарегистрировать провайдера каталога", zap.Error(err))
	}

	providerFactory := func(integration *entities.Integration) (directory.Provider, error) {
		factory, err := registry.Get(integration.Provider)
		if err != nil {
			return nil, err
		}
		tokens := directory.Tokens{
			AccessToken:  integration.AccessToken,
			RefreshToken: integration.RefreshToken,
		}
		if integration.TokenExpiry != nil {
			tokens.Expiry = *integration.TokenExpiry
		}
		return factory(integration.ID, tokens)
	}

	// 7. Сервисы и шина событий
	bus := eventbus.New(logger)
	reconciler := services.NewReconcileService(employeeRepo, "workspace", cfg.Sync.MaxErrors, logger)
	alertService := services.NewAlertService(alertRepo, employeeRepo, subscriptionRepo, cfg.Alerts, logger)
	syncService := services.NewSyncService(integrationRepo, queueRepo, reconciler, providerFactory, bus, cfg.Sync, logger)

	alertListener := listeners.NewAlertListener(alertService, logger)
	alertListener.Register(bus)

	// 8. Фоновые контуры
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sync.Mode == services.SyncModeOrchestrate {
		worker := services.NewBatchWorker(queueRepo, reconciler, bus, cfg.Sync.QueueName, logger)
		for i := 0; i < cfg.Sync.WorkerPool; i++ {
			go worker.Run(rootCtx)
		}
	}

	go runScheduler(rootCtx, syncService, integrationRepo, alertService, cfg.Sync.Interval, logger)

	// 9. Маршруты и запуск сервера
	routes.InitRouter(e, alertService, syncService, logger)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Сервер остановился с ошибкой", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("⏳ Получен сигнал остановки, завершаем работу")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", zap.Error(err))
	}
	logger.Info("🏁 Сервер остановлен")
}

// runScheduler — периодическая синхронизация плюс суточная зачистка
// старых алертов по всем организациям с активными интеграциями.
func runScheduler(
	ctx context.Context,
	syncService services.SyncServiceInterface,
	integrationRepo repositories.IntegrationRepositoryInterface,
	alertService services.AlertServiceInterface,
	interval time.Duration,
	logger *zap.Logger,
) {
	syncTicker := time.NewTicker(interval)
	defer syncTicker.Stop()
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	logger.Info("Планировщик запущен", zap.Duration("sync_interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Планировщик остановлен")
			return

		case <-syncTicker.C:
			if err := syncService.RunForProvider(ctx, "workspace"); err != nil {
				logger.Error("Плановая синхронизация завершилась ошибкой", zap.Error(err))
			}

		case <-cleanupTicker.C:
			integrations, err := integrationRepo.GetActiveByProvider(ctx, "workspace")
			if err != nil {
				logger.Error("Не удалось получить интеграции для зачистки алертов", zap.Error(err))
				continue
			}
			seen := make(map[uint64]bool)
			for _, integration := range integrations {
				if seen[integration.OrganizationID] {
					continue
				}
				seen[integration.OrganizationID] = true
				if _, err := alertService.CleanupOldAlerts(ctx, integration.OrganizationID); err != nil {
					logger.Error("Зачистка алертов завершилась ошибкой",
						zap.Uint64("organization_id", integration.OrganizationID),
						zap.Error(err),
					)
				}
			}
		}
	}
}
