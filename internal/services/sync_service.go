// Файл: internal/services/sync_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"license-system/internal/directory"
	"license-system/internal/dto"
	"license-system/internal/entities"
	"license-system/internal/events"
	"license-system/internal/repositories"
	"license-system/pkg/config"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/eventbus"
)

const (
	SyncModeOrchestrate = "orchestrate"
	SyncModeInline      = "inline"
)

// ProviderFactory собирает клиента каталога под конкретную интеграцию
// (с её токенами и sink-ом для их сохранения).
type ProviderFactory func(integration *entities.Integration) (directory.Provider, error)

type SyncServiceInterface interface {
	RunForProvider(ctx context.Context, providerName string) error
	SyncIntegration(ctx context.Context, integration *entities.Integration) error
	TriggerSync(ctx context.Context, integrationID uint64) error
	TestIntegration(ctx context.Context, integrationID uint64) error
	ListIntegrations(ctx context.Context, providerName string) ([]entities.Integration, error)
}

// SyncService — оркестратор синхронизации: выбирает пользователей
// каталога постранично, режет на батчи и либо ставит их в очередь
// (orchestrate), либо реконсилирует на месте пулом воркеров (inline).
type SyncService struct {
	integrationRepo repositories.IntegrationRepositoryInterface
	queueRepo       repositories.JobQueueRepositoryInterface
	reconciler      ReconcileServiceInterface
	providerFactory ProviderFactory
	bus             *eventbus.Bus
	cfg             config.SyncConfig
	logger          *zap.Logger
}

func NewSyncService(
	integrationRepo repositories.IntegrationRepositoryInterface,
	queueRepo repositories.JobQueueRepositoryInterface,
	reconciler ReconcileServiceInterface,
	providerFactory ProviderFactory,
	bus *eventbus.Bus,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		integrationRepo: integrationRepo,
		queueRepo:       queueRepo,
		reconciler:      reconciler,
		providerFactory: providerFactory,
		bus:             bus,
		cfg:             cfg,
		logger:          logger.Named("sync"),
	}
}

// RunForProvider — один тик планировщика: все активные интеграции
// провайдера, последовательно. Падение одной интеграции не прерывает
// обработку остальных.
func (s *SyncService) RunForProvider(ctx context.Context, providerName string) error {
	integrations, err := s.integrationRepo.GetActiveByProvider(ctx, providerName)
	if err != nil {
		return fmt.Errorf("не удалось получить активные интеграции провайдера %s: %w", providerName, err)
	}
	if len(integrations) == 0 {
		s.logger.Debug("Активных интеграций нет", zap.String("provider", providerName))
		return nil
	}

	s.logger.Info("⏳ Запуск синхронизации", zap.String("provider", providerName), zap.Int("integrations", len(integrations)))

	for i := range integrations {
		integration := integrations[i]

		runCtx := ctx
		var cancel context.CancelFunc
		if s.cfg.RunTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		}

		if err := s.SyncIntegration(runCtx, &integration); err != nil {
			s.logger.Error("💥 Синхронизация интеграции завершилась ошибкой",
				zap.Uint64("integration_id", integration.ID),
				zap.Uint64("organization_id", integration.OrganizationID),
				zap.Error(err),
			)
		}
		if cancel != nil {
			cancel()
		}
	}

	s.logger.Info("🏁 Синхронизация провайдера завершена", zap.String("provider", providerName))
	return nil
}

// SyncIntegration выполняет полный цикл одной интеграции.
func (s *SyncService) SyncIntegration(ctx context.Context, integration *entities.Integration) error {
	if integration.Status == entities.IntegrationStatusDisabled {
		return apperrors.ErrIntegrationDisabled
	}

	provider, err := s.providerFactory(integration)
	if err != nil {
		s.recordResult(ctx, integration.ID, entities.SyncStatusError, "не удалось создать клиента каталога: "+err.Error(), nil)
		return err
	}

	users, err := s.fetchAllUsers(ctx, provider)
	if err != nil {
		s.recordResult(ctx, integration.ID, entities.SyncStatusError, "ошибка выборки пользователей каталога: "+err.Error(), nil)
		return err
	}

	batches := partition(users, s.cfg.BatchSize)
	s.logger.Info("Пользователи каталога получены",
		zap.Uint64("integration_id", integration.ID),
		zap.Int("users", len(users)),
		zap.Int("batches", len(batches)),
	)

	if s.cfg.Mode == SyncModeOrchestrate {
		return s.enqueueBatches(ctx, integration, batches, len(users))
	}
	return s.reconcileInline(ctx, integration, batches, len(users))
}

// fetchAllUsers крутит пагинацию до исчерпания nextPageToken.
// Размер страницы провайдер прижимает к своему потолку сам.
func (s *SyncService) fetchAllUsers(ctx context.Context, provider directory.Provider) ([]dto.DirectoryUserDTO, error) {
	var all []dto.DirectoryUserDTO
	pageToken := ""
	for {
		page, err := provider.ListUsers(ctx, 0, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Users...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

func partition(users []dto.DirectoryUserDTO, batchSize int) [][]dto.DirectoryUserDTO {
	if batchSize <= 0 {
		batchSize = 100
	}
	var batches [][]dto.DirectoryUserDTO
	for start := 0; start < len(users); start += batchSize {
		end := start + batchSize
		if end > len(users) {
			end = len(users)
		}
		batches = append(batches, users[start:end])
	}
	return batches
}

// enqueueBatches — режим оркестрации: только выборка и постановка
// заданий, обработка идёт в воркерах независимо от этого цикла.
func (s *SyncService) enqueueBatches(ctx context.Context, integration *entities.Integration, batches [][]dto.DirectoryUserDTO, totalUsers int) error {
	for i, batch := range batches {
		job := dto.BatchJobDTO{
			JobID:          uuid.New().String(),
			IntegrationID:  integration.ID,
			OrganizationID: integration.OrganizationID,
			Users:          batch,
			BatchNumber:    i + 1,
			TotalBatches:   len(batches),
		}
		if err := s.queueRepo.Enqueue(ctx, s.cfg.QueueName, job); err != nil {
			s.recordResult(ctx, integration.ID, entities.SyncStatusError,
				fmt.Sprintf("не удалось поставить батч %d/%d в очередь: %v", i+1, len(batches), err), nil)
			return err
		}
	}

	stats := &entities.SyncStats{
		TotalUsers:   totalUsers,
		TotalBatches: len(batches),
		BatchSize:    s.cfg.BatchSize,
	}
	s.recordResult(ctx, integration.ID, entities.SyncStatusSuccess,
		fmt.Sprintf("в очередь поставлено %d батчей (%d пользователей)", len(batches), totalUsers), stats)

	s.logger.Info("📊 БАТЧИ ПОСТАВЛЕНЫ В ОЧЕРЕДЬ",
		zap.Uint64("integration_id", integration.ID),
		zap.Int("Всего", totalUsers),
		zap.Int("Батчей", len(batches)),
	)
	return nil
}

// reconcileInline — обработка на месте: батчи параллелятся пулом
// воркеров, реконсиляция внутри батча последовательная.
func (s *SyncService) reconcileInline(ctx context.Context, integration *entities.Integration, batches [][]dto.DirectoryUserDTO, totalUsers int) error {
	workers := s.cfg.WorkerPool
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		stats     entities.SyncStats
		errorList []string
	)

	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(batchNumber int, users []dto.DirectoryUserDTO) {
			defer wg.Done()
			defer func() { <-sem }()

			result := s.reconciler.ReconcileBatch(ctx, dto.BatchJobDTO{
				JobID:          uuid.New().String(),
				IntegrationID:  integration.ID,
				OrganizationID: integration.OrganizationID,
				Users:          users,
				BatchNumber:    batchNumber,
				TotalBatches:   len(batches),
			})

			mu.Lock()
			stats.Created += result.Created
			stats.Updated += result.Updated
			stats.Skipped += result.Skipped
			stats.Errors += result.ErrorCount
			for _, e := range result.Errors {
				if len(errorList) < s.cfg.MaxErrors {
					errorList = append(errorList, e)
				}
			}
			mu.Unlock()
		}(i+1, batch)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Прерванный запуск: уже обработанные батчи остаются в базе,
		// интеграция помечается ошибкой, а не успехом.
		s.recordResult(context.WithoutCancel(ctx), integration.ID, entities.SyncStatusError,
			"синхронизация прервана: "+ctx.Err().Error(), &stats)
		return ctx.Err()
	}

	status := entities.SyncStatusSuccess
	message := fmt.Sprintf("обработано %d пользователей: создано %d, обновлено %d, пропущено %d",
		totalUsers, stats.Created, stats.Updated, stats.Skipped)
	if stats.Errors > 0 {
		status = entities.SyncStatusPartial
		message += fmt.Sprintf("; ошибок: %d (первые: %s)", stats.Errors, strings.Join(errorList, "; "))
	}
	s.recordResult(ctx, integration.ID, status, message, &stats)

	s.logger.Info("📊 СОТРУДНИКИ СИНХРОНИЗИРОВАНЫ",
		zap.Uint64("integration_id", integration.ID),
		zap.Int("Всего", totalUsers),
		zap.Int("Создано", stats.Created),
		zap.Int("Обновлено", stats.Updated),
		zap.Int("Пропущено", stats.Skipped),
		zap.Int("Ошибок", stats.Errors),
	)

	s.bus.Publish(ctx, events.SyncCompletedEvent{
		IntegrationID:  integration.ID,
		OrganizationID: integration.OrganizationID,
		Status:         status,
		Stats:          stats,
	})
	return nil
}

func (s *SyncService) recordResult(ctx context.Context, integrationID uint64, status, message string, stats *entities.SyncStats) {
	if err := s.integrationRepo.UpdateSyncResult(ctx, integrationID, time.Now(), status, message, stats); err != nil {
		s.logger.Error("Не удалось записать результат синхронизации",
			zap.Uint64("integration_id", integrationID),
			zap.Error(err),
		)
	}
}

// ListIntegrations — активные интеграции провайдера для API.
func (s *SyncService) ListIntegrations(ctx context.Context, providerName string) ([]entities.Integration, error) {
	return s.integrationRepo.GetActiveByProvider(ctx, providerName)
}

// TriggerSync — ручной запуск одной интеграции из API.
func (s *SyncService) TriggerSync(ctx context.Context, integrationID uint64) error {
	integration, err := s.integrationRepo.FindByID(ctx, integrationID)
	if err != nil {
		return err
	}
	return s.SyncIntegration(ctx, integration)
}

// TestIntegration — проверка учётных данных минимальным чтением.
// Интеграция в статусе pending после успешной проверки активируется.
func (s *SyncService) TestIntegration(ctx context.Context, integrationID uint64) error {
	integration, err := s.integrationRepo.FindByID(ctx, integrationID)
	if err != nil {
		return err
	}

	provider, err := s.providerFactory(integration)
	if err != nil {
		return err
	}
	if err := provider.TestConnection(ctx); err != nil {
		if updErr := s.integrationRepo.UpdateStatus(ctx, integrationID, entities.IntegrationStatusError); updErr != nil && !errors.Is(updErr, apperrors.ErrNotFound) {
			s.logger.Error("Не удалось пометить интеграцию ошибкой", zap.Uint64("integration_id", integrationID), zap.Error(updErr))
		}
		return err
	}

	if integration.Status == entities.IntegrationStatusPending || integration.Status == entities.IntegrationStatusError {
		return s.integrationRepo.UpdateStatus(ctx, integrationID, entities.IntegrationStatusActive)
	}
	return nil
}
