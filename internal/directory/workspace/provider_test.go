package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"license-system/internal/directory"
	internalDTO "license-system/internal/dto"
)

func newTestProvider(baseURL string, tokens *directory.TokenManager) *Provider {
	return New(Options{
		BaseURL:    baseURL,
		CustomerID: "my_customer",
		Timeout:    5 * time.Second,
		Retry:      directory.RetryPolicy{Attempts: 3, BaseWait: time.Millisecond},
	}, tokens, zap.NewNop())
}

func staticTokens(accessToken string) *directory.TokenManager {
	return directory.NewTokenManager(1, directory.Tokens{AccessToken: accessToken}, nil, nil, zap.NewNop())
}

func TestListUsersRetriesOnRateLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": "quota exceeded"}`)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, staticTokens("token"))
	_, err := provider.ListUsers(context.Background(), 0, "")

	// Ровно максимум попыток, наружу уходит классифицированная ошибка.
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	var dirErr *directory.Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, directory.KindRateLimited, dirErr.Kind)
}

func TestListUsersDoesNotRetryOnAuthFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	// Без refresh-токена обновляться нечем: одна попытка, auth_failed наружу.
	provider := newTestProvider(server.URL, staticTokens("token"))
	_, err := provider.ListUsers(context.Background(), 0, "")

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, directory.IsAuthFailed(err))
}

func TestListUsersRefreshesExpiredToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
		fmt.Fprint(w, `{"access_token": "fresh", "token_type": "Bearer", "expires_in": 3600}`)
	}))
	defer tokenServer.Close()

	var apiHits int32
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiHits, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"users": [{"id": "g-1", "primaryEmail": "ivanov@x.com", "name": {"fullName": "Иванов Иван"}}]}`)
	}))
	defer apiServer.Close()

	refresh := NewRefreshFunc(http.DefaultClient, tokenServer.URL, "client-id", "client-secret")
	tokens := directory.NewTokenManager(1,
		directory.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"},
		refresh, nil, zap.NewNop())

	provider := newTestProvider(apiServer.URL, tokens)
	page, err := provider.ListUsers(context.Background(), 0, "")

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiHits), "исходный вызов и один повтор со свежим токеном")
	require.Len(t, page.Users, 1)
	assert.Equal(t, "g-1", page.Users[0].ExternalID)
	assert.Equal(t, "fresh", tokens.AccessToken())
}

func TestListUsersMapsStatusesAndSkipsBrokenRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "my_customer", r.URL.Query().Get("customer"))
		assert.Equal(t, "500", r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, `{
			"users": [
				{"id": "g-1", "primaryEmail": "a@x.com", "name": {"fullName": "Активный"}},
				{"id": "g-2", "primaryEmail": "b@x.com", "suspended": true},
				{"id": "g-3", "primaryEmail": "c@x.com", "archived": true},
				{"id": "g-4", "primaryEmail": "d@x.com", "deletionTime": "2026-08-01T00:00:00.000Z"},
				{"primaryEmail": "no-id@x.com"}
			],
			"nextPageToken": "page-2"
		}`)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, staticTokens("token"))
	page, err := provider.ListUsers(context.Background(), 0, "")

	require.NoError(t, err)
	assert.Equal(t, "page-2", page.NextPageToken)
	// Запись без id пропускается, остальные получают статус по приоритету
	// deleted > archived > suspended > active.
	require.Len(t, page.Users, 4)
	assert.Equal(t, internalDTO.DirectoryUserActive, page.Users[0].Status)
	assert.Equal(t, internalDTO.DirectoryUserSuspended, page.Users[1].Status)
	assert.Equal(t, internalDTO.DirectoryUserArchived, page.Users[2].Status)
	assert.Equal(t, internalDTO.DirectoryUserDeleted, page.Users[3].Status)
}

func TestListUsersPassesPageToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "page-2", r.URL.Query().Get("pageToken"))
		assert.Equal(t, "100", r.URL.Query().Get("maxResults"))
		fmt.Fprint(w, `{"users": []}`)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, staticTokens("token"))
	page, err := provider.ListUsers(context.Background(), 100, "page-2")

	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Empty(t, page.NextPageToken)
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"users": []}`)
	}))
	defer server.Close()

	provider := newTestProvider(server.URL, staticTokens("token"))
	assert.NoError(t, provider.TestConnection(context.Background()))
}

func TestMapUserNeverLoggedIn(t *testing.T) {
	user, err := mapUserToInternal(UserDTO{
		ID:            "g-1",
		PrimaryEmail:  "a@x.com",
		CreationTime:  "2025-01-15T10:00:00.000Z",
		LastLoginTime: neverLoggedIn,
	})
	require.NoError(t, err)
	require.NotNil(t, user.StartDate)
	assert.Nil(t, user.LastLoginAt, "сигнальная дата эпохи означает отсутствие входов")
}
