// Файл: internal/entities/subscription_entity.go
package entities

import (
	"time"

	"license-system/pkg/types"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrial    = "trial"
	SubscriptionStatusCanceled = "canceled"
)

// Subscription — подписка организации на SaaS-инструмент.
// Стоимость хранится в минорных единицах валюты (копейки/центы).
type Subscription struct {
	ID             uint64 `json:"id" db:"id"`
	OrganizationID uint64 `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
	Category       string `json:"category" db:"category"`
	Status         string `json:"status" db:"status"`

	SeatsTotal       int    `json:"seats_total" db:"seats_total"`
	SeatsUsed        int    `json:"seats_used" db:"seats_used"`
	MonthlyCostMinor int64  `json:"monthly_cost_minor" db:"monthly_cost_minor"`
	Currency         string `json:"currency" db:"currency"`

	// PreviousCostMinor — стоимость за прошлый биллинговый период.
	// Заполняется биллинговым импортом; по ней ловятся аномалии цены.
	PreviousCostMinor *int64 `json:"previous_cost_minor,omitempty" db:"previous_cost_minor"`

	RenewalDate *time.Time `json:"renewal_date,omitempty" db:"renewal_date"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty" db:"trial_ends_at"`

	types.BaseEntity
}

const (
	AssignmentStatusActive  = "active"
	AssignmentStatusRevoked = "revoked"
)

// LicenseAssignment — назначенное сотруднику место в подписке.
type LicenseAssignment struct {
	ID             uint64 `json:"id" db:"id"`
	OrganizationID uint64 `json:"organization_id" db:"organization_id"`
	EmployeeID     uint64 `json:"employee_id" db:"employee_id"`
	SubscriptionID uint64 `json:"subscription_id" db:"subscription_id"`
	Status         string `json:"status" db:"status"`

	SeatCostMinor int64  `json:"seat_cost_minor" db:"seat_cost_minor"`
	Currency      string `json:"currency" db:"currency"`

	SubscriptionName string     `json:"subscription_name" db:"subscription_name"`
	LastActivityAt   *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`

	types.BaseEntity
}
