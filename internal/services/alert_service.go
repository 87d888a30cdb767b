// Файл: internal/services/alert_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"license-system/internal/dto"
	"license-system/internal/entities"
	"license-system/internal/repositories"
	"license-system/pkg/config"
)

const defaultCurrency = "USD"

type AlertServiceInterface interface {
	GenerateAll(ctx context.Context, organizationID uint64) error

	GenerateOffboardingAlerts(ctx context.Context, organizationID uint64) error
	GenerateRenewalAlerts(ctx context.Context, organizationID uint64) error
	GenerateUnusedLicenseAlerts(ctx context.Context, organizationID uint64) error
	GenerateLowUtilizationAlerts(ctx context.Context, organizationID uint64) error
	GenerateDuplicateToolAlerts(ctx context.Context, organizationID uint64) error
	GenerateCostAnomalyAlerts(ctx context.Context, organizationID uint64) error
	GenerateSeatShortageAlerts(ctx context.Context, organizationID uint64) error
	GenerateTrialEndingAlerts(ctx context.Context, organizationID uint64) error

	List(ctx context.Context, organizationID uint64, status, alertType string, limit, offset uint64) ([]entities.Alert, uint64, error)
	Summary(ctx context.Context, organizationID uint64) (*dto.AlertSummaryDTO, error)
	Acknowledge(ctx context.Context, alertID uint64, payload dto.AcknowledgeAlertDTO) (*entities.Alert, error)
	Resolve(ctx context.Context, alertID uint64, payload dto.ResolveAlertDTO) (*entities.Alert, error)
	Dismiss(ctx context.Context, alertID uint64, payload dto.DismissAlertDTO) (*entities.Alert, error)
	Snooze(ctx context.Context, alertID uint64, payload dto.SnoozeAlertDTO) (*entities.Alert, error)
	Unsnooze(ctx context.Context, alertID uint64) (*entities.Alert, error)
	CleanupOldAlerts(ctx context.Context, organizationID uint64) (int64, error)
}

// AlertService — движок алертов: генераторы по каждому типу,
// дедупликация по детерминированному ключу и жизненный цикл.
// Генераторы идемпотентны: повторный запуск находит существующий
// алерт по ключу и не создаёт дубликат.
type AlertService struct {
	alertRepo        repositories.AlertRepositoryInterface
	employeeRepo     repositories.EmployeeRepositoryInterface
	subscriptionRepo repositories.SubscriptionRepositoryInterface
	cfg              config.AlertsConfig
	logger           *zap.Logger
}

func NewAlertService(
	alertRepo repositories.AlertRepositoryInterface,
	employeeRepo repositories.EmployeeRepositoryInterface,
	subscriptionRepo repositories.SubscriptionRepositoryInterface,
	cfg config.AlertsConfig,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		alertRepo:        alertRepo,
		employeeRepo:     employeeRepo,
		subscriptionRepo: subscriptionRepo,
		cfg:              cfg,
		logger:           logger.Named("alerts"),
	}
}

// GenerateAll прогоняет все генераторы организации. Ошибка одного
// генератора логируется и не мешает остальным.
func (s *AlertService) GenerateAll(ctx context.Context, organizationID uint64) error {
	generators := []struct {
		name string
		run  func(context.Context, uint64) error
	}{
		{"offboarding", s.GenerateOffboardingAlerts},
		{"renewal", s.GenerateRenewalAlerts},
		{"unused_license", s.GenerateUnusedLicenseAlerts},
		{"low_utilization", s.GenerateLowUtilizationAlerts},
		{"duplicate_tool", s.GenerateDuplicateToolAlerts},
		{"cost_anomaly", s.GenerateCostAnomalyAlerts},
		{"seat_shortage", s.GenerateSeatShortageAlerts},
		{"trial_ending", s.GenerateTrialEndingAlerts},
	}

	var failed int
	for _, g := range generators {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := g.run(ctx, organizationID); err != nil {
			failed++
			s.logger.Error("Генератор алертов завершился ошибкой",
				zap.String("generator", g.name),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}

	if failed > 0 {
		return fmt.Errorf("генерация алертов организации %d: %d генераторов завершились ошибкой", organizationID, failed)
	}
	return nil
}

// createIfAbsent — общий путь дедупликации: ключ, поиск, создание.
// Возвращает true, если алерт создан, false — если уже существовал.
func (s *AlertService) createIfAbsent(ctx context.Context, alertType string, input entities.AlertKeyInput, build func(alertKey string) *entities.Alert) (bool, error) {
	alertKey, err := entities.BuildAlertKey(alertType, input)
	if err != nil {
		return false, err
	}

	entity := build(alertKey)

	existing, err := s.alertRepo.FindByAlertKey(ctx, entity.OrganizationID, alertKey)
	if err == nil && existing != nil {
		return false, nil
	}

	if _, err := s.alertRepo.Save(ctx, entity); err != nil {
		return false, err
	}
	return true, nil
}

// GenerateOffboardingAlerts: уволенный сотрудник с активными
// лицензиями — деньги, которые продолжают списываться впустую.
func (s *AlertService) GenerateOffboardingAlerts(ctx context.Context, organizationID uint64) error {
	employees, err := s.employeeRepo.ListOffboarded(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки уволенных сотрудников организации %d: %w", organizationID, err)
	}

	created := 0
	for i := range employees {
		employee := employees[i]

		assignments, err := s.subscriptionRepo.FindActiveAssignmentsByEmployee(ctx, organizationID, employee.ID)
		if err != nil {
			s.logger.Error("Ошибка выборки лицензий уволенного сотрудника",
				zap.Uint64("employee_id", employee.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
			continue
		}
		if len(assignments) == 0 {
			continue
		}

		var savings int64
		currency := defaultCurrency
		licenses := make([]entities.OffboardedLicense, 0, len(assignments))
		for _, a := range assignments {
			savings += a.SeatCostMinor
			if a.Currency != "" {
				currency = a.Currency
			}
			licenses = append(licenses, entities.OffboardedLicense{
				SubscriptionID:   a.SubscriptionID,
				SubscriptionName: a.SubscriptionName,
				SeatCostMinor:    a.SeatCostMinor,
				Currency:         a.Currency,
			})
		}

		wasCreated, err := s.createIfAbsent(ctx, entities.AlertTypeOffboarding,
			entities.AlertKeyInput{EmployeeID: &employee.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeOffboarding,
					Severity:              entities.AlertSeverityCritical,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Уволенный сотрудник %s: %d активных лицензий", employee.Fio, len(licenses)),
					EmployeeID:            &employee.ID,
					PotentialSavingsMinor: savings,
					Currency:              currency,
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						Offboarding: &entities.OffboardingPayload{
							EmployeeFio:   employee.Fio,
							EmployeeEmail: employee.Email,
							OffboardedAt:  employee.OffboardedAt,
							Licenses:      licenses,
						},
					},
				}
			})
		if err != nil {
			s.logger.Error("Ошибка создания алерта offboarding",
				zap.Uint64("employee_id", employee.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
			continue
		}
		if wasCreated {
			created++
		}
	}

	if created > 0 {
		s.logger.Info("Созданы алерты offboarding", zap.Uint64("organization_id", organizationID), zap.Int("created", created))
	}
	return nil
}

// GenerateRenewalAlerts: продление подписки в пределах окна.
// Менее недели до продления — critical, иначе warning.
func (s *AlertService) GenerateRenewalAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	now := time.Now()
	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.RenewalDate == nil {
			continue
		}
		daysLeft := daysUntil(now, *sub.RenewalDate)
		if daysLeft < 0 || daysLeft > s.cfg.RenewalWindowDays {
			continue
		}

		severity := entities.AlertSeverityWarning
		if daysLeft <= 7 {
			severity = entities.AlertSeverityCritical
		}

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeRenewalUpcoming,
			entities.AlertKeyInput{SubscriptionID: &sub.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeRenewalUpcoming,
					Severity:              severity,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Подписка %s продлевается через %d дн.", sub.Name, daysLeft),
					SubscriptionID:        &sub.ID,
					PotentialSavingsMinor: sub.MonthlyCostMinor,
					Currency:              currencyOrDefault(sub.Currency),
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						Renewal: &entities.RenewalPayload{
							SubscriptionName: sub.Name,
							RenewalDate:      *sub.RenewalDate,
							DaysLeft:         daysLeft,
							MonthlyCostMinor: sub.MonthlyCostMinor,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта renewal_upcoming",
				zap.Uint64("subscription_id", sub.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateUnusedLicenseAlerts: активная лицензия без активности
// дольше порога. Лицензии уволенных пропускаем, их ловит offboarding.
func (s *AlertService) GenerateUnusedLicenseAlerts(ctx context.Context, organizationID uint64) error {
	assignments, err := s.subscriptionRepo.ListActiveAssignments(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки активных лицензий организации %d: %w", organizationID, err)
	}

	now := time.Now()
	threshold := now.AddDate(0, 0, -s.cfg.UnusedLicenseDays)

	for i := range assignments {
		a := assignments[i]

		var idleSince time.Time
		switch {
		case a.LastActivityAt != nil:
			idleSince = *a.LastActivityAt
		case a.CreatedAt != nil:
			// Активности не было вовсе: считаем простой от выдачи лицензии.
			idleSince = *a.CreatedAt
		default:
			continue
		}
		if idleSince.After(threshold) {
			continue
		}

		employee, err := s.employeeRepo.FindByID(ctx, a.EmployeeID)
		if err != nil {
			s.logger.Error("Ошибка выборки сотрудника для алерта unused_license",
				zap.Uint64("employee_id", a.EmployeeID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
			continue
		}
		if employee.Status == entities.EmployeeStatusOffboarded {
			continue
		}

		idleDays := daysUntil(idleSince, now)

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeUnusedLicense,
			entities.AlertKeyInput{EmployeeID: &a.EmployeeID, SubscriptionID: &a.SubscriptionID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeUnusedLicense,
					Severity:              entities.AlertSeverityWarning,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Лицензия %s у %s не используется %d дн.", a.SubscriptionName, employee.Email, idleDays),
					EmployeeID:            &a.EmployeeID,
					SubscriptionID:        &a.SubscriptionID,
					PotentialSavingsMinor: a.SeatCostMinor,
					Currency:              currencyOrDefault(a.Currency),
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						UnusedLicense: &entities.UnusedLicensePayload{
							SubscriptionName: a.SubscriptionName,
							EmployeeEmail:    employee.Email,
							LastActivityAt:   a.LastActivityAt,
							IdleDays:         idleDays,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта unused_license",
				zap.Uint64("employee_id", a.EmployeeID),
				zap.Uint64("subscription_id", a.SubscriptionID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateLowUtilizationAlerts: занято меньше порога процентов мест.
// Экономия — стоимость пустующих мест по средней цене места.
func (s *AlertService) GenerateLowUtilizationAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.SeatsTotal <= 0 {
			continue
		}
		utilization := sub.SeatsUsed * 100 / sub.SeatsTotal
		if utilization >= s.cfg.LowUtilizationPercent {
			continue
		}

		seatCost := sub.MonthlyCostMinor / int64(sub.SeatsTotal)
		savings := int64(sub.SeatsTotal-sub.SeatsUsed) * seatCost

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeLowUtilization,
			entities.AlertKeyInput{SubscriptionID: &sub.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeLowUtilization,
					Severity:              entities.AlertSeverityWarning,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Подписка %s занята на %d%% (%d из %d мест)", sub.Name, utilization, sub.SeatsUsed, sub.SeatsTotal),
					SubscriptionID:        &sub.ID,
					PotentialSavingsMinor: savings,
					Currency:              currencyOrDefault(sub.Currency),
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						LowUtilization: &entities.LowUtilizationPayload{
							SubscriptionName:   sub.Name,
							SeatsTotal:         sub.SeatsTotal,
							SeatsUsed:          sub.SeatsUsed,
							UtilizationPercent: utilization,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта low_utilization",
				zap.Uint64("subscription_id", sub.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateDuplicateToolAlerts: две и более активных подписки одной
// категории. Экономия — всё, кроме самой дорогой из них.
func (s *AlertService) GenerateDuplicateToolAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	byCategory := make(map[string][]entities.Subscription)
	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.Category == "" {
			continue
		}
		byCategory[sub.Category] = append(byCategory[sub.Category], sub)
	}

	for category, group := range byCategory {
		if len(group) < 2 {
			continue
		}

		var total, mostExpensive int64
		names := make([]string, 0, len(group))
		currency := defaultCurrency
		for _, sub := range group {
			total += sub.MonthlyCostMinor
			if sub.MonthlyCostMinor > mostExpensive {
				mostExpensive = sub.MonthlyCostMinor
			}
			if sub.Currency != "" {
				currency = sub.Currency
			}
			names = append(names, sub.Name)
		}

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeDuplicateTool,
			entities.AlertKeyInput{Category: category},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeDuplicateTool,
					Severity:              entities.AlertSeverityInfo,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Категория %q: %d пересекающихся инструментов", category, len(group)),
					PotentialSavingsMinor: total - mostExpensive,
					Currency:              currency,
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						DuplicateTool: &entities.DuplicateToolPayload{
							Category:              category,
							SubscriptionNames:     names,
							TotalMonthlyCostMinor: total,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта duplicate_tool",
				zap.String("category", category),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateCostAnomalyAlerts: стоимость выросла относительно прошлого
// периода сильнее порога. Прошлую стоимость поставляет биллинговый импорт.
func (s *AlertService) GenerateCostAnomalyAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.PreviousCostMinor == nil || *sub.PreviousCostMinor <= 0 {
			continue
		}
		previous := *sub.PreviousCostMinor
		deltaPercent := int((sub.MonthlyCostMinor - previous) * 100 / previous)
		if deltaPercent < s.cfg.CostAnomalyPercent {
			continue
		}

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeCostAnomaly,
			entities.AlertKeyInput{SubscriptionID: &sub.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeCostAnomaly,
					Severity:              entities.AlertSeverityWarning,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Стоимость %s выросла на %d%% за период", sub.Name, deltaPercent),
					SubscriptionID:        &sub.ID,
					PotentialSavingsMinor: sub.MonthlyCostMinor - previous,
					Currency:              currencyOrDefault(sub.Currency),
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						CostAnomaly: &entities.CostAnomalyPayload{
							SubscriptionName: sub.Name,
							PreviousMinor:    previous,
							CurrentMinor:     sub.MonthlyCostMinor,
							DeltaPercent:     deltaPercent,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта cost_anomaly",
				zap.Uint64("subscription_id", sub.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateSeatShortageAlerts: свободных мест не осталось. Экономии
// здесь нет, алерт предупреждает о грядущей доплате за места.
func (s *AlertService) GenerateSeatShortageAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.SeatsTotal <= 0 || sub.SeatsUsed < sub.SeatsTotal {
			continue
		}

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeSeatShortage,
			entities.AlertKeyInput{SubscriptionID: &sub.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID: organizationID,
					Type:           entities.AlertTypeSeatShortage,
					Severity:       entities.AlertSeverityWarning,
					Status:         entities.AlertStatusPending,
					Title:          fmt.Sprintf("В подписке %s не осталось свободных мест (%d из %d)", sub.Name, sub.SeatsUsed, sub.SeatsTotal),
					SubscriptionID: &sub.ID,
					Currency:       currencyOrDefault(sub.Currency),
					AlertKey:       alertKey,
					Payload: entities.AlertPayload{
						SeatShortage: &entities.SeatShortagePayload{
							SubscriptionName: sub.Name,
							SeatsTotal:       sub.SeatsTotal,
							SeatsUsed:        sub.SeatsUsed,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта seat_shortage",
				zap.Uint64("subscription_id", sub.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GenerateTrialEndingAlerts: триал заканчивается в пределах окна.
// Экономия — месячная стоимость, если не конвертировать подписку.
func (s *AlertService) GenerateTrialEndingAlerts(ctx context.Context, organizationID uint64) error {
	subscriptions, err := s.subscriptionRepo.ListActive(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("ошибка выборки подписок организации %d: %w", organizationID, err)
	}

	now := time.Now()
	for i := range subscriptions {
		sub := subscriptions[i]
		if sub.Status != entities.SubscriptionStatusTrial || sub.TrialEndsAt == nil {
			continue
		}
		daysLeft := daysUntil(now, *sub.TrialEndsAt)
		if daysLeft < 0 || daysLeft > s.cfg.TrialWindowDays {
			continue
		}

		if _, err := s.createIfAbsent(ctx, entities.AlertTypeTrialEnding,
			entities.AlertKeyInput{SubscriptionID: &sub.ID},
			func(alertKey string) *entities.Alert {
				return &entities.Alert{
					OrganizationID:        organizationID,
					Type:                  entities.AlertTypeTrialEnding,
					Severity:              entities.AlertSeverityWarning,
					Status:                entities.AlertStatusPending,
					Title:                 fmt.Sprintf("Триал %s заканчивается через %d дн.", sub.Name, daysLeft),
					SubscriptionID:        &sub.ID,
					PotentialSavingsMinor: sub.MonthlyCostMinor,
					Currency:              currencyOrDefault(sub.Currency),
					AlertKey:              alertKey,
					Payload: entities.AlertPayload{
						TrialEnding: &entities.TrialEndingPayload{
							SubscriptionName: sub.Name,
							TrialEndsAt:      *sub.TrialEndsAt,
							DaysLeft:         daysLeft,
						},
					},
				}
			}); err != nil {
			s.logger.Error("Ошибка создания алерта trial_ending",
				zap.Uint64("subscription_id", sub.ID),
				zap.Uint64("organization_id", organizationID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *AlertService) List(ctx context.Context, organizationID uint64, status, alertType string, limit, offset uint64) ([]entities.Alert, uint64, error) {
	return s.alertRepo.List(ctx, organizationID, status, alertType, limit, offset)
}

func (s *AlertService) Summary(ctx context.Context, organizationID uint64) (*dto.AlertSummaryDTO, error) {
	counts, err := s.alertRepo.CountByStatus(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	savings, err := s.alertRepo.CalculatePotentialSavings(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return &dto.AlertSummaryDTO{
		CountsByStatus:        counts,
		PotentialSavingsMinor: savings,
	}, nil
}

// transition — общий каркас операций жизненного цикла: загрузить,
// применить переход на сущности, сохранить.
func (s *AlertService) transition(ctx context.Context, alertID uint64, apply func(*entities.Alert) error) (*entities.Alert, error) {
	alert, err := s.alertRepo.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := apply(alert); err != nil {
		return nil, err
	}
	if err := s.alertRepo.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) Acknowledge(ctx context.Context, alertID uint64, payload dto.AcknowledgeAlertDTO) (*entities.Alert, error) {
	return s.transition(ctx, alertID, func(a *entities.Alert) error {
		return a.Acknowledge(payload.By)
	})
}

func (s *AlertService) Resolve(ctx context.Context, alertID uint64, payload dto.ResolveAlertDTO) (*entities.Alert, error) {
	return s.transition(ctx, alertID, func(a *entities.Alert) error {
		return a.Resolve(payload.By, payload.Notes.Ptr())
	})
}

func (s *AlertService) Dismiss(ctx context.Context, alertID uint64, payload dto.DismissAlertDTO) (*entities.Alert, error) {
	return s.transition(ctx, alertID, func(a *entities.Alert) error {
		return a.Dismiss(payload.By, payload.Reason.Ptr())
	})
}

func (s *AlertService) Snooze(ctx context.Context, alertID uint64, payload dto.SnoozeAlertDTO) (*entities.Alert, error) {
	return s.transition(ctx, alertID, func(a *entities.Alert) error {
		return a.Snooze(payload.By, payload.Until)
	})
}

func (s *AlertService) Unsnooze(ctx context.Context, alertID uint64) (*entities.Alert, error) {
	return s.transition(ctx, alertID, func(a *entities.Alert) error {
		a.Unsnooze()
		return nil
	})
}

// CleanupOldAlerts — зачистка закрытых алертов старше срока хранения.
func (s *AlertService) CleanupOldAlerts(ctx context.Context, organizationID uint64) (int64, error) {
	deleted, err := s.alertRepo.DeleteOldAlerts(ctx, organizationID, s.cfg.RetentionDays)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Зачищены старые алерты",
			zap.Uint64("organization_id", organizationID),
			zap.Int64("deleted", deleted),
			zap.Int("retention_days", s.cfg.RetentionDays),
		)
	}
	return deleted, nil
}

func daysUntil(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return defaultCurrency
	}
	return currency
}
