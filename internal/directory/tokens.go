// Файл: internal/directory/tokens.go
package directory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "license-system/pkg/errors"
)

// Tokens — пара access/refresh токенов интеграции.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenSink — куда сохранять обновлённые токены. Реализуется
// вызывающей стороной (репозиторием интеграций): сам клиент каталога
// про хранилище ничего не знает.
type TokenSink interface {
	SaveTokens(ctx context.Context, integrationID uint64, tokens Tokens) error
}

// RefreshFunc обменивает refresh-токен на новую пару токенов у провайдера.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// TokenManager держит актуальные токены одной интеграции и выполняет
// вызовы API с автоматическим одноразовым обновлением по auth_failed.
// Обновление взаимоисключающее: два конкурентных refresh легко
// инвалидируют токены друг друга.
type TokenManager struct {
	integrationID uint64
	refresh       RefreshFunc
	sink          TokenSink
	logger        *zap.Logger

	mu         sync.Mutex
	tokens     Tokens
	persistErr error
}

func NewTokenManager(integrationID uint64, tokens Tokens, refresh RefreshFunc, sink TokenSink, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		integrationID: integrationID,
		tokens:        tokens,
		refresh:       refresh,
		sink:          sink,
		logger:        logger.Named("token_manager"),
	}
}

func (m *TokenManager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.AccessToken
}

// PersistenceError возвращает отложенную ошибку сохранения токенов.
// Сам вызов API при этом мог пройти успешно: токены продолжают жить
// в памяти, а вызывающий решает, что делать с ошибкой персистентности.
func (m *TokenManager) PersistenceError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistErr
}

// Do выполняет call с текущим access-токеном. На auth_failed при
// наличии refresh-токена делается ровно одна попытка обновления,
// после чего исходный вызов повторяется один раз.
func (m *TokenManager) Do(ctx context.Context, call func(accessToken string) error) error {
	err := call(m.AccessToken())
	if err == nil || !IsAuthFailed(err) {
		return err
	}

	if refreshed, refreshErr := m.refreshOnce(ctx); refreshErr != nil {
		m.logger.Error("Не удалось обновить токены, отдаём исходную ошибку авторизации",
			zap.Uint64("integration_id", m.integrationID),
			zap.Error(refreshErr),
		)
		return err
	} else if !refreshed {
		return err
	}

	return call(m.AccessToken())
}

// refreshOnce возвращает (false, nil), если обновлять нечем.
func (m *TokenManager) refreshOnce(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tokens.RefreshToken == "" {
		return false, nil
	}

	newTokens, err := m.refresh(ctx, m.tokens.RefreshToken)
	if err != nil {
		return false, fmt.Errorf("обмен refresh-токена не удался: %w", err)
	}
	// Провайдер может не возвращать новый refresh-токен — старый остаётся в силе.
	if newTokens.RefreshToken == "" {
		newTokens.RefreshToken = m.tokens.RefreshToken
	}
	m.tokens = newTokens
	m.persistErr = nil

	if m.sink != nil {
		if saveErr := m.sink.SaveTokens(ctx, m.integrationID, newTokens); saveErr != nil {
			// Полученные токены терять нельзя: работаем с ними из памяти,
			// а ошибку сохранения отдаём отдельным каналом.
			m.persistErr = fmt.Errorf("%w: %v", apperrors.ErrTokenPersistence, saveErr)
			m.logger.Error("Токены обновлены, но не сохранены в базе",
				zap.Uint64("integration_id", m.integrationID),
				zap.Error(saveErr),
			)
		}
	}

	m.logger.Info("Токены интеграции обновлены", zap.Uint64("integration_id", m.integrationID))
	return true, nil
}
