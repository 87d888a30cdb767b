// Файл: internal/listeners/alert_listener.go
package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"license-system/internal/events"
	"license-system/internal/services"
	"license-system/pkg/eventbus"
)

// AlertListener запускает генерацию алертов после завершения
// синхронизации: свежее состояние сотрудников сразу превращается
// в актуальные алерты, без ожидания следующего тика планировщика.
type AlertListener struct {
	alertService services.AlertServiceInterface
	logger       *zap.Logger
}

func NewAlertListener(alertService services.AlertServiceInterface, logger *zap.Logger) *AlertListener {
	return &AlertListener{
		alertService: alertService,
		logger:       logger.Named("alert_listener"),
	}
}

func (l *AlertListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.SyncCompletedEventName, l.handleSyncCompleted)
}

func (l *AlertListener) handleSyncCompleted(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.SyncCompletedEvent)
	if !ok {
		return fmt.Errorf("неожиданный тип события %T для %s", event, event.Name())
	}

	l.logger.Info("📊 Синхронизация завершена, запускаем генерацию алертов",
		zap.Uint64("integration_id", e.IntegrationID),
		zap.Uint64("organization_id", e.OrganizationID),
		zap.String("status", e.Status),
	)

	if err := l.alertService.GenerateAll(ctx, e.OrganizationID); err != nil {
		return err
	}

	l.logger.Info("🏁 Генерация алертов после синхронизации завершена",
		zap.Uint64("organization_id", e.OrganizationID),
	)
	return nil
}
