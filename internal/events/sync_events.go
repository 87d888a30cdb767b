// Файл: internal/events/sync_events.go
package events

import "license-system/internal/entities"

const SyncCompletedEventName = "sync.completed"

// SyncCompletedEvent публикуется после завершения обработки всех
// батчей интеграции. Слушатели (генерация алертов) реагируют на него
// асинхронно.
type SyncCompletedEvent struct {
	IntegrationID  uint64
	OrganizationID uint64
	Status         string
	Stats          entities.SyncStats
}

func (e SyncCompletedEvent) Name() string {
	return SyncCompletedEventName
}
