// Файл: internal/dto/directory_dto.go
package dto

import "time"

// Статусы пользователя во внешнем каталоге (как их отдаёт провайдер).
const (
	DirectoryUserActive    = "active"
	DirectoryUserSuspended = "suspended"
	DirectoryUserArchived  = "archived"
	DirectoryUserDeleted   = "deleted"
)

// DirectoryUserDTO — провайдеро-независимое представление пользователя
// каталога. Неизменяемо в рамках одной выборки; в базу не пишется,
// служит входом для реконсиляции.
type DirectoryUserDTO struct {
	ExternalID     string     `json:"external_id"`
	Email          string     `json:"email"`
	Fio            string     `json:"fio"`
	Status         string     `json:"status"`
	Title          string     `json:"title,omitempty"`
	DepartmentPath string     `json:"department_path,omitempty"`
	ManagerEmail   string     `json:"manager_email,omitempty"`
	PhoneNumber    string     `json:"phone_number,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// DirectoryOrgUnitDTO — оргподразделение каталога. Используется
// смежным модулем маппинга департаментов.
type DirectoryOrgUnitDTO struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ParentPath string `json:"parent_path,omitempty"`
}
