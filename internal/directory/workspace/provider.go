package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"license-system/internal/directory"
	internalDTO "license-system/internal/dto"
)

const providerName = "workspace"

// hardMaxPageSize — жёсткий потолок Admin API на размер страницы.
const hardMaxPageSize = 500

// Provider - это "чистый фасад" для Workspace Admin API.
// Авторизация и обновление токенов делегированы directory.TokenManager,
// повторы временных ошибок — directory.DoWithRetry.
type Provider struct {
	httpClient *http.Client
	baseURL    string
	customerID string
	tokens     *directory.TokenManager
	retry      directory.RetryPolicy
	logger     *zap.Logger
}

type Options struct {
	BaseURL    string
	CustomerID string
	Timeout    time.Duration
	Retry      directory.RetryPolicy
}

func New(opts Options, tokens *directory.TokenManager, logger *zap.Logger) *Provider {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	retry := opts.Retry
	if retry.Attempts == 0 {
		retry = directory.DefaultRetryPolicy()
	}
	customerID := opts.CustomerID
	if customerID == "" {
		customerID = "my_customer"
	}
	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		customerID: customerID,
		tokens:     tokens,
		retry:      retry,
		logger:     logger.Named("workspace_provider"),
	}
}

func (p *Provider) Name() string {
	return providerName
}

// fetchJSON — общий путь всех чтений: ретраи снаружи, обновление
// токена по auth_failed внутри каждой попытки.
func (p *Provider) fetchJSON(ctx context.Context, endpoint string, out interface{}) error {
	return directory.DoWithRetry(ctx, p.retry, p.logger, endpoint, func() error {
		return p.tokens.Do(ctx, func(accessToken string) error {
			return p.doRequest(ctx, endpoint, accessToken, out)
		})
	})
}

func (p *Provider) doRequest(ctx context.Context, endpoint, accessToken string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("ошибка создания GET-запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения GET-запроса для '%s': %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return directory.ClassifyStatus(resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON для эндпоинта %s: %w", endpoint, err)
	}
	return nil
}

// TestConnection — минимальное чтение для проверки учётных данных.
func (p *Provider) TestConnection(ctx context.Context) error {
	endpoint := fmt.Sprintf("/admin/directory/v1/users?customer=%s&maxResults=1", url.QueryEscape(p.customerID))
	var resp userListResponse
	if err := p.fetchJSON(ctx, endpoint, &resp); err != nil {
		return fmt.Errorf("проверка подключения к каталогу не прошла: %w", err)
	}
	return nil
}

// ListUsers — одна страница пользователей. Размер страницы прижимается
// к потолку провайдера; полный список собирает вызывающая сторона.
func (p *Provider) ListUsers(ctx context.Context, pageSize int, pageToken string) (*directory.UserPage, error) {
	if pageSize <= 0 || pageSize > hardMaxPageSize {
		pageSize = hardMaxPageSize
	}

	endpoint := fmt.Sprintf("/admin/directory/v1/users?customer=%s&maxResults=%d", url.QueryEscape(p.customerID), pageSize)
	if pageToken != "" {
		endpoint += "&pageToken=" + url.QueryEscape(pageToken)
	}

	var resp userListResponse
	if err := p.fetchJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	users := make([]internalDTO.DirectoryUserDTO, 0, len(resp.Users))
	for _, ext := range resp.Users {
		internal, err := mapUserToInternal(ext)
		if err != nil {
			p.logger.Warn("Ошибка конвертации пользователя каталога, запись пропущена",
				zap.String("external_id", ext.ID),
				zap.Error(err),
			)
			continue
		}
		users = append(users, internal)
	}
	p.logger.Debug("Страница пользователей получена",
		zap.Int("count", len(users)),
		zap.Bool("has_next", resp.NextPageToken != ""),
	)

	return &directory.UserPage{Users: users, NextPageToken: resp.NextPageToken}, nil
}

func (p *Provider) getUser(ctx context.Context, userKey string) (*internalDTO.DirectoryUserDTO, error) {
	endpoint := "/admin/directory/v1/users/" + url.PathEscape(userKey)

	var ext UserDTO
	if err := p.fetchJSON(ctx, endpoint, &ext); err != nil {
		return nil, err
	}

	user, err := mapUserToInternal(ext)
	if err != nil {
		return nil, fmt.Errorf("ошибка конвертации пользователя %q: %w", userKey, err)
	}
	return &user, nil
}

// GetUserByID — поиск по стабильному внешнему идентификатору.
func (p *Provider) GetUserByID(ctx context.Context, externalID string) (*internalDTO.DirectoryUserDTO, error) {
	return p.getUser(ctx, externalID)
}

// GetUserByEmail — Admin API принимает email тем же путём, что и id.
func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*internalDTO.DirectoryUserDTO, error) {
	return p.getUser(ctx, email)
}

// ListOrgUnits — используется смежным модулем маппинга департаментов.
func (p *Provider) ListOrgUnits(ctx context.Context) ([]internalDTO.DirectoryOrgUnitDTO, error) {
	endpoint := fmt.Sprintf("/admin/directory/v1/customer/%s/orgunits?type=all", url.QueryEscape(p.customerID))

	var resp orgUnitListResponse
	if err := p.fetchJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	units := make([]internalDTO.DirectoryOrgUnitDTO, 0, len(resp.OrganizationUnits))
	for _, ext := range resp.OrganizationUnits {
		units = append(units, mapOrgUnitToInternal(ext))
	}
	return units, nil
}
