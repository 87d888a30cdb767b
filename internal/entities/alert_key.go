// Файл: internal/entities/alert_key.go
package entities

import (
	"fmt"

	apperrors "license-system/pkg/errors"
)

// AlertKeyInput — сырьё для построения ключа дедупликации.
// Какие поля обязательны — зависит от типа алерта.
type AlertKeyInput struct {
	EmployeeID     *uint64
	SubscriptionID *uint64
	Category       string
}

// BuildAlertKey строит детерминированный ключ, по которому повторные
// запуски генераторов находят уже существующий алерт вместо создания
// дубликата. Отсутствие обязательного поля — ошибка программиста,
// а не данных: она прерывает генерацию только этого алерта.
func BuildAlertKey(alertType string, input AlertKeyInput) (string, error) {
	switch alertType {
	case AlertTypeOffboarding:
		if input.EmployeeID == nil {
			return "", fmt.Errorf("%w: тип %s требует employee_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("offboarding:%d", *input.EmployeeID), nil

	case AlertTypeRenewalUpcoming:
		if input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("renewal:%d", *input.SubscriptionID), nil

	case AlertTypeUnusedLicense:
		if input.EmployeeID == nil || input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует employee_id и subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("unused:%d:%d", *input.EmployeeID, *input.SubscriptionID), nil

	case AlertTypeLowUtilization:
		if input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("low_util:%d", *input.SubscriptionID), nil

	case AlertTypeDuplicateTool:
		if input.Category == "" {
			return "", fmt.Errorf("%w: тип %s требует category", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("duplicate:%s", input.Category), nil

	case AlertTypeCostAnomaly:
		if input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("cost_anomaly:%d", *input.SubscriptionID), nil

	case AlertTypeSeatShortage:
		if input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("seat_shortage:%d", *input.SubscriptionID), nil

	case AlertTypeTrialEnding:
		if input.SubscriptionID == nil {
			return "", fmt.Errorf("%w: тип %s требует subscription_id", apperrors.ErrInvalidAlertKeyInput, alertType)
		}
		return fmt.Sprintf("trial_ending:%d", *input.SubscriptionID), nil
	}

	return "", fmt.Errorf("%w: неизвестный тип алерта %q", apperrors.ErrInvalidAlertKeyInput, alertType)
}
