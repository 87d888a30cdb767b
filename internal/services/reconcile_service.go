// Файл: internal/services/reconcile_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/entities"
	"license-system/internal/repositories"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/utils"
)

// Итог реконсиляции одного пользователя каталога.
const (
	ReconcileCreated = "created"
	ReconcileUpdated = "updated"
	ReconcileSkipped = "skipped"
)

type ReconcileServiceInterface interface {
	ReconcileUser(ctx context.Context, organizationID uint64, user dto.DirectoryUserDTO) (string, error)
	ReconcileBatch(ctx context.Context, job dto.BatchJobDTO) dto.BatchResultDTO
}

// ReconcileService сопоставляет пользователей каталога с внутренними
// сотрудниками и применяет create/update/skip.
type ReconcileService struct {
	employeeRepo repositories.EmployeeRepositoryInterface
	sourceSystem string
	maxErrors    int
	logger       *zap.Logger

	// locks сериализует реконсиляцию одного и того же external_id:
	// пересекающиеся запуски синхронизации могут принести одного
	// пользователя дважды, и без single-writer обновления теряются.
	locks sync.Map
}

func NewReconcileService(
	employeeRepo repositories.EmployeeRepositoryInterface,
	sourceSystem string,
	maxErrors int,
	logger *zap.Logger,
) *ReconcileService {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &ReconcileService{
		employeeRepo: employeeRepo,
		sourceSystem: sourceSystem,
		maxErrors:    maxErrors,
		logger:       logger.Named("reconciler"),
	}
}

// mapDirectoryStatus переводит статус провайдера во внутренний.
// Неизвестные статусы провайдера трактуем как active: лучше не
// уволить вовремя, чем уволить по ошибке.
func mapDirectoryStatus(directoryStatus string) string {
	switch directoryStatus {
	case dto.DirectoryUserActive:
		return entities.EmployeeStatusActive
	case dto.DirectoryUserSuspended:
		return entities.EmployeeStatusSuspended
	case dto.DirectoryUserArchived, dto.DirectoryUserDeleted:
		return entities.EmployeeStatusOffboarded
	default:
		return entities.EmployeeStatusActive
	}
}

func (s *ReconcileService) lockFor(organizationID uint64, externalID string) *sync.Mutex {
	key := fmt.Sprintf("%d_%s", organizationID, externalID)
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// ReconcileUser обрабатывает одного пользователя каталога: поиск по
// external_id, затем по email, затем создание или обновление.
func (s *ReconcileService) ReconcileUser(ctx context.Context, organizationID uint64, user dto.DirectoryUserDTO) (string, error) {
	if user.ExternalID == "" {
		return "", apperrors.NewInvalidInputError("у пользователя %q отсутствует external_id", user.Email)
	}

	mu := s.lockFor(organizationID, user.ExternalID)
	mu.Lock()
	defer mu.Unlock()

	mappedStatus := mapDirectoryStatus(user.Status)

	existing, err := s.employeeRepo.FindByExternalIDOrEmail(ctx, organizationID, user.ExternalID, user.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("ошибка поиска сотрудника %s: %w", user.ExternalID, err)
		}
		return s.createEmployee(ctx, organizationID, user, mappedStatus)
	}

	return s.updateEmployee(ctx, existing, user, mappedStatus)
}

func (s *ReconcileService) createEmployee(ctx context.Context, organizationID uint64, user dto.DirectoryUserDTO, mappedStatus string) (string, error) {
	entity := &entities.Employee{
		OrganizationID: organizationID,
		Fio:            user.Fio,
		Email:          user.Email,
		Status:         mappedStatus,
		Title:          utils.StringToPtr(user.Title),
		Department:     utils.StringToPtr(user.DepartmentPath),
		ManagerEmail:   utils.StringToPtr(user.ManagerEmail),
		PhoneNumber:    utils.StringToPtr(user.PhoneNumber),
		ExternalID:     utils.StringToPtr(user.ExternalID),
		SourceSystem:   utils.StringToPtr(s.sourceSystem),
		StartDate:      user.StartDate,
		LastLoginAt:    user.LastLoginAt,
	}
	if mappedStatus == entities.EmployeeStatusOffboarded {
		entity.OffboardedAt = utils.ToPtr(time.Now())
	}

	if _, err := s.employeeRepo.Create(ctx, entity); err != nil {
		return "", fmt.Errorf("ошибка создания сотрудника %s: %w", user.Email, err)
	}
	return ReconcileCreated, nil
}

func (s *ReconcileService) updateEmployee(ctx context.Context, existing *entities.Employee, user dto.DirectoryUserDTO, mappedStatus string) (string, error) {
	// Отслеживаемые для сравнения поля: external_id, email, ФИО и статус.
	changed := utils.SafeDeref(existing.ExternalID) != user.ExternalID ||
		existing.Email != user.Email ||
		existing.Fio != user.Fio ||
		existing.Status != mappedStatus

	if !changed {
		return ReconcileSkipped, nil
	}

	offboardedAt := existing.OffboardedAt
	if mappedStatus == entities.EmployeeStatusOffboarded && existing.Status != entities.EmployeeStatusOffboarded {
		offboardedAt = utils.ToPtr(time.Now())
	}
	// Ранее выставленный offboarded_at не трогаем: смена email или ФИО
	// не отменяет факт увольнения.

	existing.Fio = user.Fio
	existing.Email = user.Email
	existing.Status = mappedStatus
	existing.Title = utils.StringToPtr(user.Title)
	existing.Department = utils.StringToPtr(user.DepartmentPath)
	existing.ManagerEmail = utils.StringToPtr(user.ManagerEmail)
	existing.PhoneNumber = utils.StringToPtr(user.PhoneNumber)
	existing.ExternalID = utils.StringToPtr(user.ExternalID)
	existing.LastLoginAt = user.LastLoginAt
	existing.OffboardedAt = offboardedAt

	if err := s.employeeRepo.Update(ctx, existing); err != nil {
		return "", fmt.Errorf("ошибка обновления сотрудника id=%d: %w", existing.ID, err)
	}
	return ReconcileUpdated, nil
}

// ReconcileBatch обрабатывает один батч. Ошибка по одному пользователю
// не прерывает остальных: она логируется и попадает в ограниченный
// список ошибок батча.
func (s *ReconcileService) ReconcileBatch(ctx context.Context, job dto.BatchJobDTO) dto.BatchResultDTO {
	var result dto.BatchResultDTO

	for _, user := range job.Users {
		if ctx.Err() != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors, fmt.Sprintf("батч %d прерван: %v", job.BatchNumber, ctx.Err()))
			break
		}

		outcome, err := s.ReconcileUser(ctx, job.OrganizationID, user)
		if err != nil {
			s.logger.Error("Ошибка реконсиляции пользователя",
				zap.Uint64("organization_id", job.OrganizationID),
				zap.String("external_id", user.ExternalID),
				zap.String("email", user.Email),
				zap.Int("batch", job.BatchNumber),
				zap.Error(err),
			)
			result.ErrorCount++
			if len(result.Errors) < s.maxErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", user.ExternalID, err))
			}
			continue
		}

		switch outcome {
		case ReconcileCreated:
			result.Created++
		case ReconcileUpdated:
			result.Updated++
		default:
			result.Skipped++
		}
	}

	return result
}
