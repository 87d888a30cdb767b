package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/entities"
	"license-system/pkg/config"
	apperrors "license-system/pkg/errors"
)

type fakeAlertRepo struct {
	alerts map[string]*entities.Alert
	nextID uint64

	saveCalls int
	deleted   int64
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*entities.Alert), nextID: 1}
}

func (r *fakeAlertRepo) key(organizationID uint64, alertKey string) string {
	return fmt.Sprintf("%d:%s", organizationID, alertKey)
}

func (r *fakeAlertRepo) FindByID(ctx context.Context, id uint64) (*entities.Alert, error) {
	for _, a := range r.alerts {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeAlertRepo) FindByAlertKey(ctx context.Context, organizationID uint64, alertKey string) (*entities.Alert, error) {
	if a, ok := r.alerts[r.key(organizationID, alertKey)]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeAlertRepo) List(ctx context.Context, organizationID uint64, status, alertType string, limit, offset uint64) ([]entities.Alert, uint64, error) {
	var result []entities.Alert
	for _, a := range r.alerts {
		if a.OrganizationID != organizationID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if alertType != "" && a.Type != alertType {
			continue
		}
		result = append(result, *a)
	}
	return result, uint64(len(result)), nil
}

func (r *fakeAlertRepo) Save(ctx context.Context, entity *entities.Alert) (*entities.Alert, error) {
	r.saveCalls++
	k := r.key(entity.OrganizationID, entity.AlertKey)
	if existing, ok := r.alerts[k]; ok {
		copied := *existing
		return &copied, nil
	}
	entity.ID = r.nextID
	r.nextID++
	now := time.Now()
	entity.CreatedAt = &now
	copied := *entity
	r.alerts[k] = &copied
	return entity, nil
}

func (r *fakeAlertRepo) SaveMany(ctx context.Context, alerts []*entities.Alert) error {
	for _, a := range alerts {
		if _, err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAlertRepo) Update(ctx context.Context, entity *entities.Alert) error {
	k := r.key(entity.OrganizationID, entity.AlertKey)
	if _, ok := r.alerts[k]; !ok {
		return apperrors.ErrNotFound
	}
	copied := *entity
	r.alerts[k] = &copied
	return nil
}

func (r *fakeAlertRepo) CountByStatus(ctx context.Context, organizationID uint64) (map[string]uint64, error) {
	counts := make(map[string]uint64)
	for _, a := range r.alerts {
		if a.OrganizationID == organizationID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (r *fakeAlertRepo) CalculatePotentialSavings(ctx context.Context, organizationID uint64) (int64, error) {
	var total int64
	for _, a := range r.alerts {
		if a.OrganizationID == organizationID &&
			(a.Status == entities.AlertStatusPending || a.Status == entities.AlertStatusAcknowledged) {
			total += a.PotentialSavingsMinor
		}
	}
	return total, nil
}

func (r *fakeAlertRepo) DeleteOldAlerts(ctx context.Context, organizationID uint64, daysOld int) (int64, error) {
	return r.deleted, nil
}

type fakeSubscriptionRepo struct {
	subscriptions []entities.Subscription
	assignments   map[uint64][]entities.LicenseAssignment

	// failForEmployee ломает выборку лицензий этого сотрудника.
	failForEmployee uint64
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{assignments: make(map[uint64][]entities.LicenseAssignment)}
}

func (r *fakeSubscriptionRepo) FindByID(ctx context.Context, id uint64) (*entities.Subscription, error) {
	for i := range r.subscriptions {
		if r.subscriptions[i].ID == id {
			return &r.subscriptions[i], nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeSubscriptionRepo) ListActive(ctx context.Context, organizationID uint64) ([]entities.Subscription, error) {
	var result []entities.Subscription
	for _, s := range r.subscriptions {
		if s.OrganizationID == organizationID && s.Status != entities.SubscriptionStatusCanceled {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeSubscriptionRepo) FindActiveAssignmentsByEmployee(ctx context.Context, organizationID, employeeID uint64) ([]entities.LicenseAssignment, error) {
	if r.failForEmployee != 0 && r.failForEmployee == employeeID {
		return nil, fmt.Errorf("искусственная ошибка хранилища для сотрудника %d", employeeID)
	}
	return r.assignments[employeeID], nil
}

func (r *fakeSubscriptionRepo) ListActiveAssignments(ctx context.Context, organizationID uint64) ([]entities.LicenseAssignment, error) {
	var result []entities.LicenseAssignment
	for _, list := range r.assignments {
		result = append(result, list...)
	}
	return result, nil
}

func testAlertsConfig() config.AlertsConfig {
	return config.AlertsConfig{
		RenewalWindowDays:     30,
		UnusedLicenseDays:     45,
		LowUtilizationPercent: 40,
		CostAnomalyPercent:    30,
		TrialWindowDays:       7,
		RetentionDays:         90,
	}
}

func newTestAlertService(alertRepo *fakeAlertRepo, employeeRepo *fakeEmployeeRepo, subscriptionRepo *fakeSubscriptionRepo) *AlertService {
	return NewAlertService(alertRepo, employeeRepo, subscriptionRepo, testAlertsConfig(), zap.NewNop())
}

func offboardedEmployee(id uint64) *entities.Employee {
	now := time.Now()
	return &entities.Employee{
		ID:             id,
		OrganizationID: 10,
		Fio:            fmt.Sprintf("Уволенный %d", id),
		Email:          fmt.Sprintf("gone%d@x.com", id),
		Status:         entities.EmployeeStatusOffboarded,
		OffboardedAt:   &now,
	}
}

func TestGenerateOffboardingAlertsIdempotent(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	employeeRepo := newFakeEmployeeRepo()
	subscriptionRepo := newFakeSubscriptionRepo()

	employeeRepo.employees[42] = offboardedEmployee(42)
	subscriptionRepo.assignments[42] = []entities.LicenseAssignment{
		{ID: 1, OrganizationID: 10, EmployeeID: 42, SubscriptionID: 7, SubscriptionName: "CRM Pro", SeatCostMinor: 5000, Currency: "USD", Status: entities.AssignmentStatusActive},
		{ID: 2, OrganizationID: 10, EmployeeID: 42, SubscriptionID: 8, SubscriptionName: "Chat Plus", SeatCostMinor: 1500, Currency: "USD", Status: entities.AssignmentStatusActive},
	}

	svc := newTestAlertService(alertRepo, employeeRepo, subscriptionRepo)

	// Два прогона подряд: алерт ровно один, без дубликатов и эскалаций.
	require.NoError(t, svc.GenerateOffboardingAlerts(context.Background(), 10))
	require.NoError(t, svc.GenerateOffboardingAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "offboarding:42")
	require.NoError(t, err)
	assert.Equal(t, entities.AlertSeverityCritical, alert.Severity)
	assert.Equal(t, int64(6500), alert.PotentialSavingsMinor)
	require.NotNil(t, alert.Payload.Offboarding)
	assert.Len(t, alert.Payload.Offboarding.Licenses, 2)
}

func TestGenerateOffboardingAlertsSkipsWithoutLicenses(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	employeeRepo := newFakeEmployeeRepo()
	employeeRepo.employees[42] = offboardedEmployee(42)

	svc := newTestAlertService(alertRepo, employeeRepo, newFakeSubscriptionRepo())
	require.NoError(t, svc.GenerateOffboardingAlerts(context.Background(), 10))
	assert.Empty(t, alertRepo.alerts)
}

func TestGenerateOffboardingAlertsFailureIsolation(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	employeeRepo := newFakeEmployeeRepo()
	subscriptionRepo := newFakeSubscriptionRepo()

	employeeRepo.employees[1] = offboardedEmployee(1)
	employeeRepo.employees[2] = offboardedEmployee(2)
	subscriptionRepo.failForEmployee = 1
	subscriptionRepo.assignments[2] = []entities.LicenseAssignment{
		{ID: 3, OrganizationID: 10, EmployeeID: 2, SubscriptionID: 7, SubscriptionName: "CRM Pro", SeatCostMinor: 5000, Status: entities.AssignmentStatusActive},
	}

	svc := newTestAlertService(alertRepo, employeeRepo, subscriptionRepo)

	// Ошибка по первому сотруднику не прерывает проход по второму.
	require.NoError(t, svc.GenerateOffboardingAlerts(context.Background(), 10))
	require.Len(t, alertRepo.alerts, 1)
	_, err := alertRepo.FindByAlertKey(context.Background(), 10, "offboarding:2")
	assert.NoError(t, err)
}

func TestGenerateRenewalAlertsSeverity(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()

	soon := time.Now().Add(3 * 24 * time.Hour)
	later := time.Now().Add(20 * 24 * time.Hour)
	far := time.Now().Add(90 * 24 * time.Hour)
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 10000, Currency: "USD", RenewalDate: &soon},
		{ID: 2, OrganizationID: 10, Name: "Chat Plus", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 3000, Currency: "USD", RenewalDate: &later},
		{ID: 3, OrganizationID: 10, Name: "Storage X", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 2000, Currency: "USD", RenewalDate: &far},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateRenewalAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 2, "подписка вне окна не алертится")

	urgent, err := alertRepo.FindByAlertKey(context.Background(), 10, "renewal:1")
	require.NoError(t, err)
	assert.Equal(t, entities.AlertSeverityCritical, urgent.Severity)

	normal, err := alertRepo.FindByAlertKey(context.Background(), 10, "renewal:2")
	require.NoError(t, err)
	assert.Equal(t, entities.AlertSeverityWarning, normal.Severity)
}

func TestGenerateUnusedLicenseAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	employeeRepo := newFakeEmployeeRepo()
	subscriptionRepo := newFakeSubscriptionRepo()

	employeeRepo.employees[5] = &entities.Employee{ID: 5, OrganizationID: 10, Email: "idle@x.com", Status: entities.EmployeeStatusActive}
	employeeRepo.employees[6] = &entities.Employee{ID: 6, OrganizationID: 10, Email: "busy@x.com", Status: entities.EmployeeStatusActive}

	longAgo := time.Now().Add(-60 * 24 * time.Hour)
	recently := time.Now().Add(-2 * 24 * time.Hour)
	subscriptionRepo.assignments[5] = []entities.LicenseAssignment{
		{ID: 1, OrganizationID: 10, EmployeeID: 5, SubscriptionID: 7, SubscriptionName: "CRM Pro", SeatCostMinor: 5000, LastActivityAt: &longAgo, Status: entities.AssignmentStatusActive},
	}
	subscriptionRepo.assignments[6] = []entities.LicenseAssignment{
		{ID: 2, OrganizationID: 10, EmployeeID: 6, SubscriptionID: 7, SubscriptionName: "CRM Pro", SeatCostMinor: 5000, LastActivityAt: &recently, Status: entities.AssignmentStatusActive},
	}

	svc := newTestAlertService(alertRepo, employeeRepo, subscriptionRepo)
	require.NoError(t, svc.GenerateUnusedLicenseAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "unused:5:7")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), alert.PotentialSavingsMinor)
	require.NotNil(t, alert.Payload.UnusedLicense)
	assert.GreaterOrEqual(t, alert.Payload.UnusedLicense.IdleDays, 59)
}

func TestGenerateLowUtilizationAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Status: entities.SubscriptionStatusActive, SeatsTotal: 100, SeatsUsed: 20, MonthlyCostMinor: 100000, Currency: "USD"},
		{ID: 2, OrganizationID: 10, Name: "Chat Plus", Status: entities.SubscriptionStatusActive, SeatsTotal: 10, SeatsUsed: 9, MonthlyCostMinor: 5000, Currency: "USD"},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateLowUtilizationAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "low_util:1")
	require.NoError(t, err)
	// 80 пустующих мест по 1000 минорных единиц за место.
	assert.Equal(t, int64(80000), alert.PotentialSavingsMinor)
	require.NotNil(t, alert.Payload.LowUtilization)
	assert.Equal(t, 20, alert.Payload.LowUtilization.UtilizationPercent)
}

func TestGenerateDuplicateToolAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Category: "crm", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 10000, Currency: "USD"},
		{ID: 2, OrganizationID: 10, Name: "CRM Lite", Category: "crm", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 4000, Currency: "USD"},
		{ID: 3, OrganizationID: 10, Name: "Storage X", Category: "storage", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 2000, Currency: "USD"},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateDuplicateToolAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "duplicate:crm")
	require.NoError(t, err)
	assert.Equal(t, entities.AlertSeverityInfo, alert.Severity)
	// Всё, кроме самой дорогой подписки категории.
	assert.Equal(t, int64(4000), alert.PotentialSavingsMinor)
	require.NotNil(t, alert.Payload.DuplicateTool)
	assert.ElementsMatch(t, []string{"CRM Pro", "CRM Lite"}, alert.Payload.DuplicateTool.SubscriptionNames)
}

func TestGenerateCostAnomalyAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	previous := int64(10000)
	stable := int64(5000)
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 15000, PreviousCostMinor: &previous, Currency: "USD"},
		{ID: 2, OrganizationID: 10, Name: "Chat Plus", Status: entities.SubscriptionStatusActive, MonthlyCostMinor: 5500, PreviousCostMinor: &stable, Currency: "USD"},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateCostAnomalyAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1, "рост на 10% не считается аномалией")
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "cost_anomaly:1")
	require.NoError(t, err)
	require.NotNil(t, alert.Payload.CostAnomaly)
	assert.Equal(t, 50, alert.Payload.CostAnomaly.DeltaPercent)
}

func TestGenerateSeatShortageAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Status: entities.SubscriptionStatusActive, SeatsTotal: 50, SeatsUsed: 50, Currency: "USD"},
		{ID: 2, OrganizationID: 10, Name: "Chat Plus", Status: entities.SubscriptionStatusActive, SeatsTotal: 50, SeatsUsed: 30, Currency: "USD"},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateSeatShortageAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	_, err := alertRepo.FindByAlertKey(context.Background(), 10, "seat_shortage:1")
	assert.NoError(t, err)
}

func TestGenerateTrialEndingAlerts(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	subscriptionRepo := newFakeSubscriptionRepo()
	endingSoon := time.Now().Add(2 * 24 * time.Hour)
	endingLater := time.Now().Add(30 * 24 * time.Hour)
	subscriptionRepo.subscriptions = []entities.Subscription{
		{ID: 1, OrganizationID: 10, Name: "CRM Pro", Status: entities.SubscriptionStatusTrial, MonthlyCostMinor: 10000, TrialEndsAt: &endingSoon, Currency: "USD"},
		{ID: 2, OrganizationID: 10, Name: "Chat Plus", Status: entities.SubscriptionStatusTrial, MonthlyCostMinor: 3000, TrialEndsAt: &endingLater, Currency: "USD"},
	}

	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), subscriptionRepo)
	require.NoError(t, svc.GenerateTrialEndingAlerts(context.Background(), 10))

	require.Len(t, alertRepo.alerts, 1)
	alert, err := alertRepo.FindByAlertKey(context.Background(), 10, "trial_ending:1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), alert.PotentialSavingsMinor)
}

func TestAlertLifecycleThroughService(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), newFakeSubscriptionRepo())

	saved, err := alertRepo.Save(context.Background(), &entities.Alert{
		OrganizationID: 10,
		Type:           entities.AlertTypeOffboarding,
		Severity:       entities.AlertSeverityCritical,
		Status:         entities.AlertStatusPending,
		AlertKey:       "offboarding:42",
	})
	require.NoError(t, err)

	// Отложить на прошлую дату нельзя.
	_, err = svc.Snooze(context.Background(), saved.ID, dto.SnoozeAlertDTO{By: 7, Until: time.Now().Add(-time.Hour)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidSnoozeDate)

	acked, err := svc.Acknowledge(context.Background(), saved.ID, dto.AcknowledgeAlertDTO{By: 7})
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusAcknowledged, acked.Status)

	resolved, err := svc.Resolve(context.Background(), saved.ID, dto.ResolveAlertDTO{By: 8, Notes: null.StringFrom("готово")})
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusResolved, resolved.Status)
	assert.Equal(t, "готово", *resolved.ResolutionNotes)

	// Отклонение решённого алерта запрещено.
	_, err = svc.Dismiss(context.Background(), saved.ID, dto.DismissAlertDTO{By: 7})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAlertSummary(t *testing.T) {
	alertRepo := newFakeAlertRepo()
	svc := newTestAlertService(alertRepo, newFakeEmployeeRepo(), newFakeSubscriptionRepo())

	for i, status := range []string{entities.AlertStatusPending, entities.AlertStatusPending, entities.AlertStatusResolved} {
		_, err := alertRepo.Save(context.Background(), &entities.Alert{
			OrganizationID:        10,
			Type:                  entities.AlertTypeRenewalUpcoming,
			Status:                status,
			AlertKey:              fmt.Sprintf("renewal:%d", i+1),
			PotentialSavingsMinor: 1000,
		})
		require.NoError(t, err)
	}

	summary, err := svc.Summary(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), summary.CountsByStatus[entities.AlertStatusPending])
	assert.Equal(t, uint64(1), summary.CountsByStatus[entities.AlertStatusResolved])
	// Закрытые алерты в потенциальную экономию не входят.
	assert.Equal(t, int64(2000), summary.PotentialSavingsMinor)
}
