// Файл: internal/services/context.go
package services

import (
	"context"
	"time"
)

// NewBackgroundContext — контекст для фоновых задач, запущенных из
// HTTP-обработчиков: запрос уже отвечен, но работа не должна жить вечно.
func NewBackgroundContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Minute)
}
