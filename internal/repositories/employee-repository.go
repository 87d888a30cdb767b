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

const employeeTable = "employees"
const employeeSelectFields = "id, organization_id, fio, email, status, title, department, manager_email, phone_number, external_id, source_system, start_date, last_login_at, offboarded_at, created_at, updated_at"

type EmployeeRepositoryInterface interface {
	FindByID(ctx context.Context, id uint64) (*entities.Employee, error)
	FindByExternalIDOrEmail(ctx context.Context, organizationID uint64, externalID, email string) (*entities.Employee, error)
	ListOffboarded(ctx context.Context, organizationID uint64) ([]entities.Employee, error)
	Create(ctx context.Context, entity *entities.Employee) (uint64, error)
	Update(ctx context.Context, entity *entities.Employee) error
}

type EmployeeRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewEmployeeRepository(storage *pgxpool.Pool, logger *zap.Logger) EmployeeRepositoryInterface {
	return &EmployeeRepository{storage: storage, logger: logger}
}

func scanEmployee(row pgx.Row) (*entities.Employee, error) {
	var e entities.Employee
	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.Fio, &e.Email, &e.Status,
		&e.Title, &e.Department, &e.ManagerEmail, &e.PhoneNumber,
		&e.ExternalID, &e.SourceSystem,
		&e.StartDate, &e.LastLoginAt, &e.OffboardedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id uint64) (*entities.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", employeeSelectFields, employeeTable)
	return scanEmployee(r.storage.QueryRow(ctx, query, id))
}

// FindByExternalIDOrEmail ищет сотрудника сначала по external_id,
// затем по email. ExternalID — более сильный ключ: email может
// меняться, external_id провайдера — нет.
func (r *EmployeeRepository) FindByExternalIDOrEmail(ctx context.Context, organizationID uint64, externalID, email string) (*entities.Employee, error) {
	if externalID != "" {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = $1 AND external_id = $2", employeeSelectFields, employeeTable)
		employee, err := scanEmployee(r.storage.QueryRow(ctx, query, organizationID, externalID))
		if err == nil {
			return employee, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = $1 AND LOWER(email) = LOWER($2)", employeeSelectFields, employeeTable)
	return scanEmployee(r.storage.QueryRow(ctx, query, organizationID, email))
}

func (r *EmployeeRepository) ListOffboarded(ctx context.Context, organizationID uint64) ([]entities.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = $1 AND status = $2 ORDER BY offboarded_at DESC NULLS LAST", employeeSelectFields, employeeTable)

	rows, err := r.storage.Query(ctx, query, organizationID, entities.EmployeeStatusOffboarded)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки уволенных сотрудников: %w", err)
	}
	defer rows.Close()

	var result []entities.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *employee)
	}
	return result, rows.Err()
}

func (r *EmployeeRepository) Create(ctx context.Context, entity *entities.Employee) (uint64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (organization_id, fio, email, status, title, department, manager_email, phone_number, external_id, source_system, start_date, last_login_at, offboarded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`, employeeTable)

	var newID uint64
	err := r.storage.QueryRow(ctx, query,
		entity.OrganizationID, entity.Fio, entity.Email, entity.Status,
		entity.Title, entity.Department, entity.ManagerEmail, entity.PhoneNumber,
		entity.ExternalID, entity.SourceSystem,
		entity.StartDate, entity.LastLoginAt, entity.OffboardedAt,
	).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания сотрудника %s: %w", entity.Email, err)
	}
	return newID, nil
}

// Update перезаписывает отслеживаемые поля одним запросом.
// offboarded_at передаётся как есть: решение о его изменении
// принимает реконсилятор, а не репозиторий.
func (r *EmployeeRepository) Update(ctx context.Context, entity *entities.Employee) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			fio = $1, email = $2, status = $3, title = $4, department = $5,
			manager_email = $6, phone_number = $7, external_id = $8,
			last_login_at = $9, offboarded_at = $10, updated_at = NOW()
		WHERE id = $11`, employeeTable)

	tag, err := r.storage.Exec(ctx, query,
		entity.Fio, entity.Email, entity.Status, entity.Title, entity.Department,
		entity.ManagerEmail, entity.PhoneNumber, entity.ExternalID,
		entity.LastLoginAt, entity.OffboardedAt, entity.ID,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления сотрудника id=%d: %w", entity.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
