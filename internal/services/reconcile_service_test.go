package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/entities"
	apperrors "license-system/pkg/errors"
	"license-system/pkg/utils"
)

// fakeEmployeeRepo — хранилище сотрудников в памяти для тестов.
type fakeEmployeeRepo struct {
	employees map[uint64]*entities.Employee
	nextID    uint64
	updates   int

	// failOnEmail, если задан, ломает Create/Update для этого email.
	failOnEmail string
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[uint64]*entities.Employee), nextID: 1}
}

func (r *fakeEmployeeRepo) FindByID(ctx context.Context, id uint64) (*entities.Employee, error) {
	if e, ok := r.employees[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeEmployeeRepo) FindByExternalIDOrEmail(ctx context.Context, organizationID uint64, externalID, email string) (*entities.Employee, error) {
	if externalID != "" {
		for _, e := range r.employees {
			if e.OrganizationID == organizationID && utils.SafeDeref(e.ExternalID) == externalID {
				copied := *e
				return &copied, nil
			}
		}
	}
	for _, e := range r.employees {
		if e.OrganizationID == organizationID && strings.EqualFold(e.Email, email) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeEmployeeRepo) ListOffboarded(ctx context.Context, organizationID uint64) ([]entities.Employee, error) {
	var result []entities.Employee
	for _, e := range r.employees {
		if e.OrganizationID == organizationID && e.Status == entities.EmployeeStatusOffboarded {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (r *fakeEmployeeRepo) Create(ctx context.Context, entity *entities.Employee) (uint64, error) {
	if r.failOnEmail != "" && entity.Email == r.failOnEmail {
		return 0, fmt.Errorf("искусственная ошибка хранилища для %s", entity.Email)
	}
	entity.ID = r.nextID
	r.nextID++
	copied := *entity
	r.employees[entity.ID] = &copied
	return entity.ID, nil
}

func (r *fakeEmployeeRepo) Update(ctx context.Context, entity *entities.Employee) error {
	if r.failOnEmail != "" && entity.Email == r.failOnEmail {
		return fmt.Errorf("искусственная ошибка хранилища для %s", entity.Email)
	}
	if _, ok := r.employees[entity.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.updates++
	copied := *entity
	r.employees[entity.ID] = &copied
	return nil
}

func newTestReconciler(repo *fakeEmployeeRepo) *ReconcileService {
	return NewReconcileService(repo, "workspace", 10, zap.NewNop())
}

func TestReconcileUserCreates(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	outcome, err := svc.ReconcileUser(context.Background(), 1, dto.DirectoryUserDTO{
		ExternalID: "g-1",
		Email:      "ivanov@x.com",
		Fio:        "Иванов Иван",
		Status:     dto.DirectoryUserActive,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileCreated, outcome)
	require.Len(t, repo.employees, 1)

	created := repo.employees[1]
	assert.Equal(t, entities.EmployeeStatusActive, created.Status)
	assert.Equal(t, "workspace", utils.SafeDeref(created.SourceSystem))
	assert.Nil(t, created.OffboardedAt)
}

func TestReconcileUserMatchingPriority(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	// Сотрудник с external_id g-1 и старым email.
	_, err := svc.ReconcileUser(context.Background(), 1, dto.DirectoryUserDTO{
		ExternalID: "g-1",
		Email:      "old@x.com",
		Fio:        "Петров Пётр",
		Status:     dto.DirectoryUserActive,
	})
	require.NoError(t, err)

	// Тот же external_id, но другой email: external_id сильнее,
	// email обновляется на месте, дубликат не создаётся.
	outcome, err := svc.ReconcileUser(context.Background(), 1, dto.DirectoryUserDTO{
		ExternalID: "g-1",
		Email:      "new@x.com",
		Fio:        "Петров Пётр",
		Status:     dto.DirectoryUserActive,
	})
	require.NoError(t, err)
	assert.Equal(t, ReconcileUpdated, outcome)
	require.Len(t, repo.employees, 1)
	assert.Equal(t, "new@x.com", repo.employees[1].Email)
}

func TestReconcileUserSkipStability(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	user := dto.DirectoryUserDTO{
		ExternalID: "g-2",
		Email:      "sidorov@x.com",
		Fio:        "Сидоров Сидор",
		Status:     dto.DirectoryUserSuspended,
	}

	_, err := svc.ReconcileUser(context.Background(), 1, user)
	require.NoError(t, err)

	// Повторная реконсиляция без изменений: skip, записи в базу нет.
	for i := 0; i < 2; i++ {
		outcome, err := svc.ReconcileUser(context.Background(), 1, user)
		require.NoError(t, err)
		assert.Equal(t, ReconcileSkipped, outcome)
	}
	assert.Equal(t, 0, repo.updates)
}

func TestReconcileUserOffboarding(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	user := dto.DirectoryUserDTO{ExternalID: "g-3", Email: "gone@x.com", Fio: "Ушедший", Status: dto.DirectoryUserActive}
	_, err := svc.ReconcileUser(context.Background(), 1, user)
	require.NoError(t, err)

	user.Status = dto.DirectoryUserArchived
	outcome, err := svc.ReconcileUser(context.Background(), 1, user)
	require.NoError(t, err)
	assert.Equal(t, ReconcileUpdated, outcome)

	stored := repo.employees[1]
	assert.Equal(t, entities.EmployeeStatusOffboarded, stored.Status)
	require.NotNil(t, stored.OffboardedAt)
	firstOffboardedAt := *stored.OffboardedAt

	// Смена ФИО после увольнения не сбрасывает и не передвигает offboarded_at.
	user.Fio = "Ушедший Совсем"
	_, err = svc.ReconcileUser(context.Background(), 1, user)
	require.NoError(t, err)
	require.NotNil(t, repo.employees[1].OffboardedAt)
	assert.Equal(t, firstOffboardedAt, *repo.employees[1].OffboardedAt)
}

func TestReconcileUserUnknownStatusDefaultsToActive(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	_, err := svc.ReconcileUser(context.Background(), 1, dto.DirectoryUserDTO{
		ExternalID: "g-4",
		Email:      "weird@x.com",
		Fio:        "Неизвестный",
		Status:     "vacation",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.EmployeeStatusActive, repo.employees[1].Status)
}

func TestReconcileUserWithoutExternalID(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	_, err := svc.ReconcileUser(context.Background(), 1, dto.DirectoryUserDTO{Email: "no-id@x.com"})
	var invalidInput *apperrors.InvalidInputError
	assert.ErrorAs(t, err, &invalidInput)
}

func TestReconcileBatchPartialFailureIsolation(t *testing.T) {
	repo := newFakeEmployeeRepo()
	repo.failOnEmail = "user50@x.com"
	svc := newTestReconciler(repo)

	users := make([]dto.DirectoryUserDTO, 0, 100)
	for i := 1; i <= 100; i++ {
		users = append(users, dto.DirectoryUserDTO{
			ExternalID: fmt.Sprintf("g-%d", i),
			Email:      fmt.Sprintf("user%d@x.com", i),
			Fio:        fmt.Sprintf("Пользователь %d", i),
			Status:     dto.DirectoryUserActive,
		})
	}

	result := svc.ReconcileBatch(context.Background(), dto.BatchJobDTO{
		OrganizationID: 1,
		Users:          users,
		BatchNumber:    1,
		TotalBatches:   1,
	})

	// Падение пользователя №50 не мешает остальным.
	assert.Equal(t, 99, result.Created)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "g-50")
}

func TestReconcileBatchBoundedErrorList(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := NewReconcileService(repo, "workspace", 3, zap.NewNop())

	// У всех пользователей отсутствует external_id: каждый даёт ошибку.
	users := make([]dto.DirectoryUserDTO, 10)
	for i := range users {
		users[i] = dto.DirectoryUserDTO{Email: fmt.Sprintf("u%d@x.com", i)}
	}

	result := svc.ReconcileBatch(context.Background(), dto.BatchJobDTO{OrganizationID: 1, Users: users})
	assert.Equal(t, 10, result.ErrorCount)
	assert.Len(t, result.Errors, 3, "в отчёт попадают только первые K ошибок")
}

func TestReconcileBatchContextCancellation(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestReconciler(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := svc.ReconcileBatch(ctx, dto.BatchJobDTO{
		OrganizationID: 1,
		Users:          []dto.DirectoryUserDTO{{ExternalID: "g-1", Email: "a@x.com"}},
	})
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.ErrorCount)
}
