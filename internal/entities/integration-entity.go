// Файл: internal/entities/integration_entity.go
package entities

import (
	"time"

	"license-system/pkg/types"
)

const (
	IntegrationStatusPending  = "pending"
	IntegrationStatusActive   = "active"
	IntegrationStatusError    = "error"
	IntegrationStatusDisabled = "disabled"
)

const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusError   = "error"
)

// SyncStats — агрегированная статистика последнего запуска синхронизации.
// В режиме оркестрации заполняются TotalUsers/TotalBatches/BatchSize,
// в inline-режиме — Created/Updated/Skipped/Errors.
type SyncStats struct {
	TotalUsers   int `json:"total_users,omitempty"`
	TotalBatches int `json:"total_batches,omitempty"`
	BatchSize    int `json:"batch_size,omitempty"`
	Created      int `json:"created,omitempty"`
	Updated      int `json:"updated,omitempty"`
	Skipped      int `json:"skipped,omitempty"`
	Errors       int `json:"errors,omitempty"`
}

// Integration — подключение организации к внешнему каталогу.
// Токены хранятся как непрозрачные строки: шифрованием занимается
// отдельный слой на уровне базы. Интеграции не удаляются физически,
// только переводятся в disabled.
type Integration struct {
	ID             uint64 `json:"id" db:"id"`
	OrganizationID uint64 `json:"organization_id" db:"organization_id"`
	Provider       string `json:"provider" db:"provider"`
	Status         string `json:"status" db:"status"`

	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken string     `json:"-" db:"refresh_token"`
	TokenExpiry  *time.Time `json:"-" db:"token_expiry"`

	LastSyncAt      *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	LastSyncStatus  *string    `json:"last_sync_status,omitempty" db:"last_sync_status"`
	LastSyncMessage *string    `json:"last_sync_message,omitempty" db:"last_sync_message"`
	SyncStats       *SyncStats `json:"sync_stats,omitempty" db:"sync_stats"`

	types.BaseEntity
}
