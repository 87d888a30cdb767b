// Файл: internal/dto/alert_dto.go
package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type AcknowledgeAlertDTO struct {
	By uint64 `json:"by" validate:"required"`
}

type ResolveAlertDTO struct {
	By    uint64      `json:"by" validate:"required"`
	Notes null.String `json:"notes"`
}

type DismissAlertDTO struct {
	By     uint64      `json:"by" validate:"required"`
	Reason null.String `json:"reason"`
}

type SnoozeAlertDTO struct {
	By    uint64    `json:"by" validate:"required"`
	Until time.Time `json:"until" validate:"required"`
}

// AlertSummaryDTO — сводка для дашборда: количество по статусам
// и суммарная потенциальная экономия по открытым алертам.
type AlertSummaryDTO struct {
	CountsByStatus        map[string]uint64 `json:"counts_by_status"`
	PotentialSavingsMinor int64             `json:"potential_savings_minor"`
}
