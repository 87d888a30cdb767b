package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"license-system/internal/entities"
	apperrors "license-system/pkg/errors"
)

const subscriptionTable = "subscriptions"
const subscriptionSelectFields = "id, organization_id, name, category, status, seats_total, seats_used, monthly_cost_minor, currency, previous_cost_minor, renewal_date, trial_ends_at, created_at, updated_at"

const assignmentSelectFields = "a.id, a.organization_id, a.employee_id, a.subscription_id, a.status, a.seat_cost_minor, a.currency, s.name AS subscription_name, a.last_activity_at, a.created_at, a.updated_at"
const assignmentJoinClause = "license_assignments a JOIN subscriptions s ON a.subscription_id = s.id"

type SubscriptionRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Subscription, error)
	ListActive(ctx context.Context, organizationID uint64) ([]entities.Subscription, error)
	FindActiveAssignmentsByEmployee(ctx context.Context, organizationID, employeeID uint64) ([]entities.LicenseAssignment, error)
	ListActiveAssignments(ctx context.Context, organizationID uint64) ([]entities.LicenseAssignment, error)
}

type SubscriptionRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewSubscriptionRepository(storage *pgxpool.Pool, logger *zap.Logger) SubscriptionRepositoryInterface {
	return &SubscriptionRepository{storage: storage, logger: logger}
}

func scanSubscription(row pgx.Row) (*entities.Subscription, error) {
	var s entities.Subscription
	err := row.Scan(
		&s.ID, &s.OrganizationID, &s.Name, &s.Category, &s.Status,
		&s.SeatsTotal, &s.SeatsUsed, &s.MonthlyCostMinor, &s.Currency,
		&s.PreviousCostMinor, &s.RenewalDate, &s.TrialEndsAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAssignment(row pgx.Row) (*entities.LicenseAssignment, error) {
	var a entities.LicenseAssignment
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.EmployeeID, &a.SubscriptionID, &a.Status,
		&a.SeatCostMinor, &a.Currency, &a.SubscriptionName, &a.LastActivityAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint64) (*entities.Subscription, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", subscriptionSelectFields, subscriptionTable)
	return scanSubscription(r.storage.QueryRow(ctx, query, id))
}

// ListActive возвращает активные и триальные подписки организации —
// рабочее множество всех генераторов алертов по подпискам.
func (r *SubscriptionRepository) ListActive(ctx context.Context, organizationID uint64) ([]entities.Subscription, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = $1 AND status IN ($2, $3) ORDER BY id", subscriptionSelectFields, subscriptionTable)

	rows, err := r.storage.Query(ctx, query, organizationID, entities.SubscriptionStatusActive, entities.SubscriptionStatusTrial)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}
	defer rows.Close()

	var result []entities.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sub)
	}
	return result, rows.Err()
}

func (r *SubscriptionRepository) FindActiveAssignmentsByEmployee(ctx context.Context, organizationID, employeeID uint64) ([]entities.LicenseAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE a.organization_id = $1 AND a.employee_id = $2 AND a.status = $3", assignmentSelectFields, assignmentJoinClause)

	rows, err := r.storage.Query(ctx, query, organizationID, employeeID, entities.AssignmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки лицензий сотрудника %d: %w", employeeID, err)
	}
	defer rows.Close()

	var result []entities.LicenseAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assignment)
	}
	return result, rows.Err()
}

func (r *SubscriptionRepository) ListActiveAssignments(ctx context.Context, organizationID uint64) ([]entities.LicenseAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE a.organization_id = $1 AND a.status = $2", assignmentSelectFields, assignmentJoinClause)

	rows, err := r.storage.Query(ctx, query, organizationID, entities.AssignmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки активных лицензий организации %d: %w", organizationID, err)
	}
	defer rows.Close()

	var result []entities.LicenseAssignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *assignment)
	}
	return result, rows.Err()
}
