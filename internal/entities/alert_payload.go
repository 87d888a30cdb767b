// Файл: internal/entities/alert_payload.go
package entities

import "time"

// AlertPayload — типизированная полезная нагрузка алерта.
// Заполняется ровно одна ветка, соответствующая Alert.Type;
// в базе хранится как JSONB.
type AlertPayload struct {
	Offboarding    *OffboardingPayload    `json:"offboarding,omitempty"`
	Renewal        *RenewalPayload        `json:"renewal,omitempty"`
	UnusedLicense  *UnusedLicensePayload  `json:"unused_license,omitempty"`
	LowUtilization *LowUtilizationPayload `json:"low_utilization,omitempty"`
	DuplicateTool  *DuplicateToolPayload  `json:"duplicate_tool,omitempty"`
	CostAnomaly    *CostAnomalyPayload    `json:"cost_anomaly,omitempty"`
	SeatShortage   *SeatShortagePayload   `json:"seat_shortage,omitempty"`
	TrialEnding    *TrialEndingPayload    `json:"trial_ending,omitempty"`
}

// OffboardedLicense — одна "висящая" лицензия уволенного сотрудника.
type OffboardedLicense struct {
	SubscriptionID   uint64 `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	SeatCostMinor    int64  `json:"seat_cost_minor"`
	Currency         string `json:"currency"`
}

type OffboardingPayload struct {
	EmployeeFio   string              `json:"employee_fio"`
	EmployeeEmail string              `json:"employee_email"`
	OffboardedAt  *time.Time          `json:"offboarded_at,omitempty"`
	Licenses      []OffboardedLicense `json:"licenses"`
}

type RenewalPayload struct {
	SubscriptionName string    `json:"subscription_name"`
	RenewalDate      time.Time `json:"renewal_date"`
	DaysLeft         int       `json:"days_left"`
	MonthlyCostMinor int64     `json:"monthly_cost_minor"`
}

type UnusedLicensePayload struct {
	SubscriptionName string     `json:"subscription_name"`
	EmployeeEmail    string     `json:"employee_email"`
	LastActivityAt   *time.Time `json:"last_activity_at,omitempty"`
	IdleDays         int        `json:"idle_days"`
}

type LowUtilizationPayload struct {
	SubscriptionName   string `json:"subscription_name"`
	SeatsTotal         int    `json:"seats_total"`
	SeatsUsed          int    `json:"seats_used"`
	UtilizationPercent int    `json:"utilization_percent"`
}

type DuplicateToolPayload struct {
	Category              string   `json:"category"`
	SubscriptionNames     []string `json:"subscription_names"`
	TotalMonthlyCostMinor int64    `json:"total_monthly_cost_minor"`
}

type CostAnomalyPayload struct {
	SubscriptionName string `json:"subscription_name"`
	PreviousMinor    int64  `json:"previous_minor"`
	CurrentMinor     int64  `json:"current_minor"`
	DeltaPercent     int    `json:"delta_percent"`
}

type SeatShortagePayload struct {
	SubscriptionName string `json:"subscription_name"`
	SeatsTotal       int    `json:"seats_total"`
	SeatsUsed        int    `json:"seats_used"`
}

type TrialEndingPayload struct {
	SubscriptionName string    `json:"subscription_name"`
	TrialEndsAt      time.Time `json:"trial_ends_at"`
	DaysLeft         int       `json:"days_left"`
}
