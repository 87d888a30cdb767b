package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"license-system/internal/directory"
)

// NewRefreshFunc собирает функцию обмена refresh-токена для
// directory.TokenManager. OAuth-эндпоинт и клиентские учётные данные
// общие на всех интеграциях провайдера.
func NewRefreshFunc(httpClient *http.Client, tokenURL, clientID, clientSecret string) directory.RefreshFunc {
	return func(ctx context.Context, refreshToken string) (directory.Tokens, error) {
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
		form.Set("client_id", clientID)
		form.Set("client_secret", clientSecret)

		req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return directory.Tokens{}, fmt.Errorf("ошибка создания запроса на обновление токена: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return directory.Tokens{}, fmt.Errorf("ошибка выполнения запроса на обновление токена: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			return directory.Tokens{}, fmt.Errorf("OAuth-эндпоинт вернул статус %s, тело ответа: %s", resp.Status, string(bodyBytes))
		}

		var tokenResp tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
			return directory.Tokens{}, fmt.Errorf("ошибка парсинга ответа с токеном: %w", err)
		}
		if tokenResp.AccessToken == "" {
			return directory.Tokens{}, fmt.Errorf("OAuth-эндпоинт не вернул access_token")
		}

		return directory.Tokens{
			AccessToken:  tokenResp.AccessToken,
			RefreshToken: tokenResp.RefreshToken,
			Expiry:       time.Now().Add(time.Second * time.Duration(tokenResp.ExpiresIn)),
		}, nil
	}
}
