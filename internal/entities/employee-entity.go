// Файл: internal/entities/employee_entity.go
package entities

import (
	"time"

	"license-system/pkg/types"
)

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusSuspended  = "suspended"
	EmployeeStatusOffboarded = "offboarded"
)

type Employee struct {
	ID             uint64  `json:"id" db:"id"`
	OrganizationID uint64  `json:"organization_id" db:"organization_id"`
	Fio            string  `json:"fio" db:"fio"`
	Email          string  `json:"email" db:"email"`
	Status         string  `json:"status" db:"status"`

	Title        *string `json:"title,omitempty" db:"title"`
	Department   *string `json:"department,omitempty" db:"department"`
	ManagerEmail *string `json:"manager_email,omitempty" db:"manager_email"`
	PhoneNumber  *string `json:"phone_number,omitempty" db:"phone_number"`

	ExternalID   *string `json:"external_id,omitempty" db:"external_id"`
	SourceSystem *string `json:"source_system,omitempty" db:"source_system"`

	StartDate    *time.Time `json:"start_date,omitempty" db:"start_date"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	OffboardedAt *time.Time `json:"offboarded_at,omitempty" db:"offboarded_at"`

	types.BaseEntity
}
