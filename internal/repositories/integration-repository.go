package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"license-system/internal/directory"
	"license-system/internal/entities"
	apperrors "license-system/pkg/errors"
)

const integrationTable = "integrations"
const integrationSelectFields = "id, organization_id, provider, status, access_token, refresh_token, token_expiry, last_sync_at, last_sync_status, last_sync_message, sync_stats, created_at, updated_at"

type IntegrationRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Integration, error)
	GetActiveByProvider(ctx context.Context, provider string) ([]entities.Integration, error)
	UpdateStatus(ctx context.Context, id uint64, status string) error
	UpdateSyncResult(ctx context.Context, id uint64, syncAt time.Time, syncStatus, message string, stats *entities.SyncStats) error
	SaveTokens(ctx context.Context, integrationID uint64, tokens directory.Tokens) error
}

type IntegrationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewIntegrationRepository(storage *pgxpool.Pool, logger *zap.Logger) IntegrationRepositoryInterface {
	return &IntegrationRepository{storage: storage, logger: logger}
}

func scanIntegration(row pgx.Row) (*entities.Integration, error) {
	var i entities.Integration
	var statsRaw []byte
	err := row.Scan(
		&i.ID, &i.OrganizationID, &i.Provider, &i.Status,
		&i.AccessToken, &i.RefreshToken, &i.TokenExpiry,
		&i.LastSyncAt, &i.LastSyncStatus, &i.LastSyncMessage, &statsRaw,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if len(statsRaw) > 0 {
		var stats entities.SyncStats
		if err := json.Unmarshal(statsRaw, &stats); err != nil {
			return nil, fmt.Errorf("ошибка парсинга sync_stats интеграции id=%d: %w", i.ID, err)
		}
		i.SyncStats = &stats
	}
	return &i, nil
}

func (r *IntegrationRepository) FindByID(ctx context.Context, id uint64) (*entities.Integration, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", integrationSelectFields, integrationTable)
	return scanIntegration(r.storage.QueryRow(ctx, query, id))
}

func (r *IntegrationRepository) GetActiveByProvider(ctx context.Context, provider string) ([]entities.Integration, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE provider = $1 AND status = $2 ORDER BY id", integrationSelectFields, integrationTable)

	rows, err := r.storage.Query(ctx, query, provider, entities.IntegrationStatusActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки активных интеграций провайдера %s: %w", provider, err)
	}
	defer rows.Close()

	var result []entities.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *integration)
	}
	return result, rows.Err()
}

func (r *IntegrationRepository) UpdateStatus(ctx context.Context, id uint64, status string) error {
	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2", integrationTable)
	tag, err := r.storage.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса интеграции id=%d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateSyncResult фиксирует итог запуска синхронизации: время,
// статус success/partial/error, человекочитаемое сообщение и статистику.
func (r *IntegrationRepository) UpdateSyncResult(ctx context.Context, id uint64, syncAt time.Time, syncStatus, message string, stats *entities.SyncStats) error {
	var statsRaw []byte
	if stats != nil {
		var err error
		statsRaw, err = json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("ошибка сериализации sync_stats интеграции id=%d: %w", id, err)
		}
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			last_sync_at = $1, last_sync_status = $2, last_sync_message = $3,
			sync_stats = $4, updated_at = NOW()
		WHERE id = $5`, integrationTable)

	tag, err := r.storage.Exec(ctx, query, syncAt, syncStatus, message, statsRaw, id)
	if err != nil {
		return fmt.Errorf("ошибка записи результата синхронизации интеграции id=%d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SaveTokens реализует directory.TokenSink: обновлённые токены
// сохраняются до продолжения работы с API.
func (r *IntegrationRepository) SaveTokens(ctx context.Context, integrationID uint64, tokens directory.Tokens) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			access_token = $1, refresh_token = $2, token_expiry = $3, updated_at = NOW()
		WHERE id = $4`, integrationTable)

	tag, err := r.storage.Exec(ctx, query, tokens.AccessToken, tokens.RefreshToken, tokens.Expiry, integrationID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения токенов интеграции id=%d: %w", integrationID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	r.logger.Info("Токены интеграции сохранены", zap.Uint64("integration_id", integrationID))
	return nil
}
