// Файл: internal/entities/alert_entity.go
package entities

import (
	"time"

	apperrors "license-system/pkg/errors"
	"license-system/pkg/types"
)

const (
	AlertTypeOffboarding     = "offboarding"
	AlertTypeRenewalUpcoming = "renewal_upcoming"
	AlertTypeUnusedLicense   = "unused_license"
	AlertTypeLowUtilization  = "low_utilization"
	AlertTypeDuplicateTool   = "duplicate_tool"
	AlertTypeCostAnomaly     = "cost_anomaly"
	AlertTypeSeatShortage    = "seat_shortage"
	AlertTypeTrialEnding     = "trial_ending"
)

const (
	AlertSeverityCritical = "critical"
	AlertSeverityWarning  = "warning"
	AlertSeverityInfo     = "info"
)

const (
	AlertStatusPending      = "pending"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
	AlertStatusDismissed    = "dismissed"
)

// Alert — факт, требующий внимания администратора организации.
// Создаётся движком алертов, дальше живёт только через переходы
// Acknowledge/Resolve/Dismiss/Snooze. Физически удаляется только
// зачисткой по сроку хранения.
type Alert struct {
	ID             uint64 `json:"id" db:"id"`
	OrganizationID uint64 `json:"organization_id" db:"organization_id"`
	Type           string `json:"type" db:"type"`
	Severity       string `json:"severity" db:"severity"`
	Status         string `json:"status" db:"status"`
	Title          string `json:"title" db:"title"`

	EmployeeID     *uint64 `json:"employee_id,omitempty" db:"employee_id"`
	SubscriptionID *uint64 `json:"subscription_id,omitempty" db:"subscription_id"`

	// Потенциальная экономия в минорных единицах валюты.
	PotentialSavingsMinor int64  `json:"potential_savings_minor" db:"potential_savings_minor"`
	Currency              string `json:"currency" db:"currency"`

	// AlertKey — детерминированный ключ дедупликации (см. alert_key.go).
	AlertKey string       `json:"alert_key" db:"alert_key"`
	Payload  AlertPayload `json:"payload" db:"payload"`

	AcknowledgedBy *uint64    `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`

	ResolvedBy      *uint64    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty" db:"resolution_notes"`

	DismissedBy   *uint64    `json:"dismissed_by,omitempty" db:"dismissed_by"`
	DismissedAt   *time.Time `json:"dismissed_at,omitempty" db:"dismissed_at"`
	DismissReason *string    `json:"dismiss_reason,omitempty" db:"dismiss_reason"`

	SnoozedBy    *uint64    `json:"snoozed_by,omitempty" db:"snoozed_by"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty" db:"snoozed_until"`

	types.BaseEntity
}

func (a *Alert) touch() {
	now := time.Now()
	a.UpdatedAt = &now
}

// Acknowledge — взять алерт в работу. Разрешено только из pending.
func (a *Alert) Acknowledge(by uint64) error {
	if a.Status != AlertStatusPending {
		return apperrors.ErrInvalidTransition
	}
	now := time.Now()
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedBy = &by
	a.AcknowledgedAt = &now
	a.touch()
	return nil
}

// Resolve — закрыть алерт как решённый. Повторный вызов — no-op:
// первый резолвер, время и заметки сохраняются.
func (a *Alert) Resolve(by uint64, notes *string) error {
	if a.Status == AlertStatusResolved {
		return nil
	}
	if a.Status != AlertStatusPending && a.Status != AlertStatusAcknowledged {
		return apperrors.ErrInvalidTransition
	}
	now := time.Now()
	a.Status = AlertStatusResolved
	a.ResolvedBy = &by
	a.ResolvedAt = &now
	a.ResolutionNotes = notes
	a.touch()
	return nil
}

// Dismiss — отклонить алерт как неактуальный. Из resolved отклонить нельзя.
func (a *Alert) Dismiss(by uint64, reason *string) error {
	if a.Status != AlertStatusPending && a.Status != AlertStatusAcknowledged {
		return apperrors.ErrInvalidTransition
	}
	now := time.Now()
	a.Status = AlertStatusDismissed
	a.DismissedBy = &by
	a.DismissedAt = &now
	a.DismissReason = reason
	a.touch()
	return nil
}

// Snooze — отложить алерт до указанного момента. Статус не меняется.
func (a *Alert) Snooze(by uint64, until time.Time) error {
	if a.Status != AlertStatusPending {
		return apperrors.ErrInvalidTransition
	}
	if !until.After(time.Now()) {
		return apperrors.ErrInvalidSnoozeDate
	}
	a.SnoozedBy = &by
	a.SnoozedUntil = &until
	a.touch()
	return nil
}

// Unsnooze — снять отложение. Безопасен, даже если алерт не был отложен.
func (a *Alert) Unsnooze() {
	a.SnoozedBy = nil
	a.SnoozedUntil = nil
	a.touch()
}

// IsSnoozed вычисляется, а не хранится: true, пока срок отложения не истёк.
func (a *Alert) IsSnoozed() bool {
	return a.SnoozedUntil != nil && a.SnoozedUntil.After(time.Now())
}
