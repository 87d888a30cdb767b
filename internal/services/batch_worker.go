// Файл: internal/services/batch_worker.go
package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/entities"
	"license-system/internal/events"
	"license-system/internal/repositories"
	"license-system/pkg/eventbus"
)

// dequeueTimeout — шаг блокирующего чтения из очереди. Короткий,
// чтобы воркер быстро замечал отмену контекста.
const dequeueTimeout = 5 * time.Second

// BatchWorker разбирает очередь батч-заданий в режиме оркестрации.
// Несколько воркеров могут работать с одной очередью: BRPop отдаёт
// каждое задание ровно одному из них.
type BatchWorker struct {
	queueRepo  repositories.JobQueueRepositoryInterface
	reconciler ReconcileServiceInterface
	bus        *eventbus.Bus
	queueName  string
	logger     *zap.Logger
}

func NewBatchWorker(
	queueRepo repositories.JobQueueRepositoryInterface,
	reconciler ReconcileServiceInterface,
	bus *eventbus.Bus,
	queueName string,
	logger *zap.Logger,
) *BatchWorker {
	return &BatchWorker{
		queueRepo:  queueRepo,
		reconciler: reconciler,
		bus:        bus,
		queueName:  queueName,
		logger:     logger.Named("batch-worker"),
	}
}

// Run крутит цикл до отмены контекста. Битое задание логируется и
// выбрасывается: возвращать его в очередь бессмысленно, оно не станет
// валидным при повторе.
func (w *BatchWorker) Run(ctx context.Context) {
	w.logger.Info("⏳ Воркер батчей запущен", zap.String("queue", w.queueName))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("🏁 Воркер батчей остановлен", zap.String("queue", w.queueName))
			return
		default:
		}

		raw, err := w.queueRepo.Dequeue(ctx, w.queueName, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("Ошибка чтения из очереди батчей", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if raw == nil {
			continue
		}

		var job dto.BatchJobDTO
		if err := json.Unmarshal(raw, &job); err != nil {
			w.logger.Error("⚠️ Битое задание в очереди, пропускаем", zap.Error(err))
			continue
		}

		w.process(ctx, job)
	}
}

func (w *BatchWorker) process(ctx context.Context, job dto.BatchJobDTO) {
	result := w.reconciler.ReconcileBatch(ctx, job)

	w.logger.Info("📊 БАТЧ ОБРАБОТАН",
		zap.String("job_id", job.JobID),
		zap.Uint64("integration_id", job.IntegrationID),
		zap.Int("batch", job.BatchNumber),
		zap.Int("of", job.TotalBatches),
		zap.Int("Создано", result.Created),
		zap.Int("Обновлено", result.Updated),
		zap.Int("Пропущено", result.Skipped),
		zap.Int("Ошибок", result.ErrorCount),
	)

	// Последний батч интеграции будит генерацию алертов. Батчи могут
	// приходить не по порядку, но последний номер приходит один раз.
	if job.BatchNumber == job.TotalBatches {
		status := entities.SyncStatusSuccess
		if result.ErrorCount > 0 {
			status = entities.SyncStatusPartial
		}
		w.bus.Publish(ctx, events.SyncCompletedEvent{
			IntegrationID:  job.IntegrationID,
			OrganizationID: job.OrganizationID,
			Status:         status,
			Stats: entities.SyncStats{
				Created: result.Created,
				Updated: result.Updated,
				Skipped: result.Skipped,
				Errors:  result.ErrorCount,
			},
		})
	}
}
