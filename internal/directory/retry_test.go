package directory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, BaseWait: time.Millisecond}
}

func TestDoWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	rateLimited := ClassifyStatus(http.StatusTooManyRequests, "quota exceeded")

	err := DoWithRetry(context.Background(), testPolicy(3), zap.NewNop(), "list_users", func() error {
		calls++
		return rateLimited
	})

	// Ровно максимум попыток, наружу уходит исходная ошибка без обёрток.
	assert.Equal(t, 3, calls)
	var dirErr *Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, KindRateLimited, dirErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, dirErr.Status)
}

func TestDoWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), testPolicy(5), zap.NewNop(), "get_user", func() error {
		calls++
		return ClassifyStatus(http.StatusNotFound, "user not found")
	})

	assert.Equal(t, 1, calls, "not_found не повторяется")
	var dirErr *Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, KindNotFound, dirErr.Kind)
}

func TestDoWithRetryRecovers(t *testing.T) {
	calls := 0
	err := DoWithRetry(context.Background(), testPolicy(5), zap.NewNop(), "list_users", func() error {
		calls++
		if calls < 3 {
			return ClassifyStatus(http.StatusServiceUnavailable, "backend down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := DoWithRetry(ctx, testPolicy(5), zap.NewNop(), "list_users", func() error {
		calls++
		cancel()
		return ClassifyStatus(http.StatusInternalServerError, "boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "отменённый контекст прерывает ожидание между попытками")
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{http.StatusTooManyRequests, KindRateLimited, true},
		{http.StatusInternalServerError, KindServerError, true},
		{http.StatusBadGateway, KindServerError, true},
		{http.StatusUnauthorized, KindAuthFailed, false},
		{http.StatusForbidden, KindAuthFailed, false},
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusBadRequest, KindUnknown, false},
	}
	for _, tc := range tests {
		classified := ClassifyStatus(tc.status, "")
		assert.Equal(t, tc.kind, classified.Kind, "HTTP %d", tc.status)
		assert.Equal(t, tc.retryable, classified.Retryable(), "HTTP %d", tc.status)
	}
}

type fakeTokenSink struct {
	saved   []Tokens
	saveErr error
}

func (s *fakeTokenSink) SaveTokens(ctx context.Context, integrationID uint64, tokens Tokens) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, tokens)
	return nil
}

func TestTokenManagerRefreshOnAuthFailure(t *testing.T) {
	sink := &fakeTokenSink{}
	refreshCalls := 0
	manager := NewTokenManager(1,
		Tokens{AccessToken: "stale", RefreshToken: "refresh-1"},
		func(ctx context.Context, refreshToken string) (Tokens, error) {
			refreshCalls++
			assert.Equal(t, "refresh-1", refreshToken)
			return Tokens{AccessToken: "fresh", RefreshToken: "refresh-2"}, nil
		},
		sink, zap.NewNop())

	var seen []string
	err := manager.Do(context.Background(), func(accessToken string) error {
		seen = append(seen, accessToken)
		if accessToken == "stale" {
			return ClassifyStatus(http.StatusUnauthorized, "token expired")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, refreshCalls, "обновление делается ровно один раз")
	assert.Equal(t, []string{"stale", "fresh"}, seen)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "fresh", sink.saved[0].AccessToken)
	assert.NoError(t, manager.PersistenceError())
}

func TestTokenManagerKeepsOriginalErrorWhenRefreshFails(t *testing.T) {
	manager := NewTokenManager(1,
		Tokens{AccessToken: "stale", RefreshToken: "refresh-1"},
		func(ctx context.Context, refreshToken string) (Tokens, error) {
			return Tokens{}, errors.New("oauth endpoint down")
		},
		nil, zap.NewNop())

	calls := 0
	err := manager.Do(context.Background(), func(accessToken string) error {
		calls++
		return ClassifyStatus(http.StatusForbidden, "insufficient scopes")
	})

	assert.Equal(t, 1, calls, "без новых токенов повторять вызов бессмысленно")
	var dirErr *Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, KindAuthFailed, dirErr.Kind)
}

func TestTokenManagerWithoutRefreshToken(t *testing.T) {
	refreshCalls := 0
	manager := NewTokenManager(1,
		Tokens{AccessToken: "stale"},
		func(ctx context.Context, refreshToken string) (Tokens, error) {
			refreshCalls++
			return Tokens{}, nil
		},
		nil, zap.NewNop())

	err := manager.Do(context.Background(), func(accessToken string) error {
		return ClassifyStatus(http.StatusUnauthorized, "token expired")
	})

	assert.True(t, IsAuthFailed(err))
	assert.Equal(t, 0, refreshCalls)
}

func TestTokenManagerKeepsTokensOnPersistFailure(t *testing.T) {
	sink := &fakeTokenSink{saveErr: errors.New("база недоступна")}
	manager := NewTokenManager(1,
		Tokens{AccessToken: "stale", RefreshToken: "refresh-1"},
		func(ctx context.Context, refreshToken string) (Tokens, error) {
			return Tokens{AccessToken: "fresh"}, nil
		},
		sink, zap.NewNop())

	err := manager.Do(context.Background(), func(accessToken string) error {
		if accessToken == "stale" {
			return ClassifyStatus(http.StatusUnauthorized, "token expired")
		}
		return nil
	})

	// Вызов прошёл: свежие токены живут в памяти, ошибка сохранения
	// отдаётся отдельным каналом и не роняет синхронизацию.
	require.NoError(t, err)
	assert.Equal(t, "fresh", manager.AccessToken())
	assert.Error(t, manager.PersistenceError())
}

func TestTokenManagerPreservesRefreshTokenWhenOmitted(t *testing.T) {
	sink := &fakeTokenSink{}
	manager := NewTokenManager(1,
		Tokens{AccessToken: "stale", RefreshToken: "refresh-1"},
		func(ctx context.Context, refreshToken string) (Tokens, error) {
			// Провайдер вернул только access-токен.
			return Tokens{AccessToken: "fresh"}, nil
		},
		sink, zap.NewNop())

	err := manager.Do(context.Background(), func(accessToken string) error {
		if accessToken == "stale" {
			return ClassifyStatus(http.StatusUnauthorized, "token expired")
		}
		return nil
	})

	require.NoError(t, err)
	require.Len(t, sink.saved, 1)
	assert.Equal(t, "refresh-1", sink.saved[0].RefreshToken)
}
