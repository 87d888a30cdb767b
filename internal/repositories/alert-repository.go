package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"license-system/internal/entities"
	apperrors "license-system/pkg/errors"
)

const alertTable = "alerts"
const alertSelectFields = "id, organization_id, type, severity, status, title, employee_id, subscription_id, potential_savings_minor, currency, alert_key, payload, acknowledged_by, acknowledged_at, resolved_by, resolved_at, resolution_notes, dismissed_by, dismissed_at, dismiss_reason, snoozed_by, snoozed_until, created_at, updated_at"

// uniqueViolation — код ошибки Postgres для нарушения UNIQUE.
const uniqueViolation = "23505"

type AlertRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Alert, error)
	FindByAlertKey(ctx context.Context, organizationID uint64, alertKey string) (*entities.Alert, error)
	List(ctx context.Context, organizationID uint64, status, alertType string, limit, offset uint64) ([]entities.Alert, uint64, error)
	Save(ctx context.Context, entity *entities.Alert) (*entities.Alert, error)
	SaveMany(ctx context.Context, alerts []*entities.Alert) error
	Update(ctx context.Context, entity *entities.Alert) error
	CountByStatus(ctx context.Context, organizationID uint64) (map[string]uint64, error)
	CalculatePotentialSavings(ctx context.Context, organizationID uint64) (int64, error)
	DeleteOldAlerts(ctx context.Context, organizationID uint64, daysOld int) (int64, error)
}

type AlertRepository struct {
	storage   *pgxpool.Pool
	txManager TxManagerInterface
	logger    *zap.Logger
}

func NewAlertRepository(storage *pgxpool.Pool, txManager TxManagerInterface, logger *zap.Logger) AlertRepositoryInterface {
	return &AlertRepository{storage: storage, txManager: txManager, logger: logger}
}

func scanAlert(row pgx.Row) (*entities.Alert, error) {
	var a entities.Alert
	var payloadRaw []byte
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.Type, &a.Severity, &a.Status, &a.Title,
		&a.EmployeeID, &a.SubscriptionID,
		&a.PotentialSavingsMinor, &a.Currency, &a.AlertKey, &payloadRaw,
		&a.AcknowledgedBy, &a.AcknowledgedAt,
		&a.ResolvedBy, &a.ResolvedAt, &a.ResolutionNotes,
		&a.DismissedBy, &a.DismissedAt, &a.DismissReason,
		&a.SnoozedBy, &a.SnoozedUntil,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if len(payloadRaw) > 0 {
		if err := json.Unmarshal(payloadRaw, &a.Payload); err != nil {
			return nil, fmt.Errorf("ошибка парсинга payload алерта id=%d: %w", a.ID, err)
		}
	}
	return &a, nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id uint64) (*entities.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", alertSelectFields, alertTable)
	return scanAlert(r.storage.QueryRow(ctx, query, id))
}

func (r *AlertRepository) FindByAlertKey(ctx context.Context, organizationID uint64, alertKey string) (*entities.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = $1 AND alert_key = $2", alertSelectFields, alertTable)
	return scanAlert(r.storage.QueryRow(ctx, query, organizationID, alertKey))
}

// List — фильтруемая выборка для дашборда, собирается через squirrel.
func (r *AlertRepository) List(ctx context.Context, organizationID uint64, status, alertType string, limit, offset uint64) ([]entities.Alert, uint64, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	base := psql.Select().From(alertTable).Where(sq.Eq{"organization_id": organizationID})
	if status != "" {
		base = base.Where(sq.Eq{"status": status})
	}
	if alertType != "" {
		base = base.Where(sq.Eq{"type": alertType})
	}

	countQuery, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса подсчета алертов: %w", err)
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета алертов: %w", err)
	}
	if total == 0 {
		return []entities.Alert{}, 0, nil
	}

	query, args, err := base.Columns(alertSelectFields).
		OrderBy("created_at DESC").
		Limit(limit).Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сборки запроса списка алертов: %w", err)
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []entities.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *alert)
	}
	return result, total, rows.Err()
}

// Save вставляет новый алерт. Гонка двух конкурентных генераций
// разрешается UNIQUE (organization_id, alert_key): проигравший insert
// возвращает уже существующую строку вместо ошибки.
func (r *AlertRepository) Save(ctx context.Context, entity *entities.Alert) (*entities.Alert, error) {
	payloadRaw, err := json.Marshal(entity.Payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации payload алерта %s: %w", entity.AlertKey, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (organization_id, type, severity, status, title, employee_id, subscription_id, potential_savings_minor, currency, alert_key, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING %s`, alertTable, alertSelectFields)

	saved, err := scanAlert(r.storage.QueryRow(ctx, query,
		entity.OrganizationID, entity.Type, entity.Severity, entity.Status, entity.Title,
		entity.EmployeeID, entity.SubscriptionID,
		entity.PotentialSavingsMinor, entity.Currency, entity.AlertKey, payloadRaw,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Debug("Алерт с таким ключом уже существует, возвращаем его",
				zap.Uint64("organization_id", entity.OrganizationID),
				zap.String("alert_key", entity.AlertKey),
			)
			return r.FindByAlertKey(ctx, entity.OrganizationID, entity.AlertKey)
		}
		return nil, fmt.Errorf("ошибка сохранения алерта %s: %w", entity.AlertKey, err)
	}
	return saved, nil
}

// SaveMany вставляет пачку алертов в одной транзакции: либо все,
// либо никто. Дубликаты по ключу молча пропускаются.
func (r *AlertRepository) SaveMany(ctx context.Context, alerts []*entities.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (organization_id, type, severity, status, title, employee_id, subscription_id, potential_savings_minor, currency, alert_key, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (organization_id, alert_key) DO NOTHING`, alertTable)

	return r.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		for _, alert := range alerts {
			payloadRaw, err := json.Marshal(alert.Payload)
			if err != nil {
				return fmt.Errorf("ошибка сериализации payload алерта %s: %w", alert.AlertKey, err)
			}
			if _, err := tx.Exec(ctx, query,
				alert.OrganizationID, alert.Type, alert.Severity, alert.Status, alert.Title,
				alert.EmployeeID, alert.SubscriptionID,
				alert.PotentialSavingsMinor, alert.Currency, alert.AlertKey, payloadRaw,
			); err != nil {
				return fmt.Errorf("ошибка сохранения алерта %s: %w", alert.AlertKey, err)
			}
		}
		return nil
	})
}

// Update пишет только поля жизненного цикла: тип, ключ и payload
// после создания не меняются.
func (r *AlertRepository) Update(ctx context.Context, entity *entities.Alert) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			status = $1,
			acknowledged_by = $2, acknowledged_at = $3,
			resolved_by = $4, resolved_at = $5, resolution_notes = $6,
			dismissed_by = $7, dismissed_at = $8, dismiss_reason = $9,
			snoozed_by = $10, snoozed_until = $11,
			updated_at = NOW()
		WHERE id = $12`, alertTable)

	tag, err := r.storage.Exec(ctx, query,
		entity.Status,
		entity.AcknowledgedBy, entity.AcknowledgedAt,
		entity.ResolvedBy, entity.ResolvedAt, entity.ResolutionNotes,
		entity.DismissedBy, entity.DismissedAt, entity.DismissReason,
		entity.SnoozedBy, entity.SnoozedUntil,
		entity.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления алерта id=%d: %w", entity.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *AlertRepository) CountByStatus(ctx context.Context, organizationID uint64) (map[string]uint64, error) {
	query := fmt.Sprintf("SELECT status, COUNT(*) FROM %s WHERE organization_id = $1 GROUP BY status", alertTable)

	rows, err := r.storage.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета алертов по статусам: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var status string
		var count uint64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// CalculatePotentialSavings — сумма potential_savings_minor по открытым алертам.
func (r *AlertRepository) CalculatePotentialSavings(ctx context.Context, organizationID uint64) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(potential_savings_minor), 0)
		FROM %s
		WHERE organization_id = $1 AND status IN ($2, $3)`, alertTable)

	var total int64
	err := r.storage.QueryRow(ctx, query, organizationID, entities.AlertStatusPending, entities.AlertStatusAcknowledged).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета потенциальной экономии: %w", err)
	}
	return total, nil
}

// DeleteOldAlerts — единственный путь физического удаления: зачистка
// закрытых алертов старше daysOld дней.
func (r *AlertRepository) DeleteOldAlerts(ctx context.Context, organizationID uint64, daysOld int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE organization_id = $1
		  AND status IN ($2, $3)
		  AND updated_at < NOW() - make_interval(days => $4)`, alertTable)

	tag, err := r.storage.Exec(ctx, query, organizationID, entities.AlertStatusResolved, entities.AlertStatusDismissed, daysOld)
	if err != nil {
		return 0, fmt.Errorf("ошибка зачистки старых алертов: %w", err)
	}
	return tag.RowsAffected(), nil
}
