// Файл: internal/dto/sync_dto.go
package dto

// BatchJobDTO — единица работы для обработчика батчей. В режиме
// оркестрации сериализуется в очередь, в inline-режиме передаётся
// напрямую в пул воркеров.
type BatchJobDTO struct {
	JobID          string             `json:"job_id"`
	IntegrationID  uint64             `json:"integration_id"`
	OrganizationID uint64             `json:"organization_id"`
	Users          []DirectoryUserDTO `json:"users"`
	BatchNumber    int                `json:"batch_number"`
	TotalBatches   int                `json:"total_batches"`
}

// BatchResultDTO — итог обработки одного батча. ErrorCount считает
// все ошибки, Errors хранит только первые K для отчёта.
type BatchResultDTO struct {
	Created    int
	Updated    int
	Skipped    int
	ErrorCount int
	Errors     []string
}
