// Файл: internal/directory/retry.go
package directory

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy — экспоненциальный backoff с джиттером.
// Базовая задержка удваивается на каждую попытку, сверху добавляется
// случайный джиттер до 1 секунды.
type RetryPolicy struct {
	Attempts int
	BaseWait time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, BaseWait: time.Second}
}

// DoWithRetry выполняет fn максимум policy.Attempts раз. Повторяются
// только retryable-ошибки каталога; по исчерпанию попыток наружу
// отдаётся исходная ошибка без обёрток, чтобы вызывающий мог
// залогировать её причину и код.
func DoWithRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, op string, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == attempts {
			return lastErr
		}

		wait := policy.BaseWait << (attempt - 1)
		jitter := time.Duration(rand.Int63n(int64(time.Second)))
		logger.Warn("Каталог ответил временной ошибкой, повторяем",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait+jitter),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(wait + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
