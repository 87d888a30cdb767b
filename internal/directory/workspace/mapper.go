package workspace

import (
	"fmt"
	"time"

	internalDTO "license-system/internal/dto"
)

// Google отдаёт эту дату у пользователей, которые ни разу не входили.
const neverLoggedIn = "1970-01-01T00:00:00.000Z"

// mapUserToInternal — переводит одного пользователя Workspace во
// внутреннее провайдеро-независимое представление.
func mapUserToInternal(ext UserDTO) (internalDTO.DirectoryUserDTO, error) {
	if ext.ID == "" {
		return internalDTO.DirectoryUserDTO{}, fmt.Errorf("у пользователя %q отсутствует стабильный id", ext.PrimaryEmail)
	}
	if ext.PrimaryEmail == "" {
		return internalDTO.DirectoryUserDTO{}, fmt.Errorf("у пользователя id=%s отсутствует primaryEmail", ext.ID)
	}

	status := internalDTO.DirectoryUserActive
	switch {
	case ext.DeletionTime != "":
		status = internalDTO.DirectoryUserDeleted
	case ext.Archived:
		status = internalDTO.DirectoryUserArchived
	case ext.Suspended:
		status = internalDTO.DirectoryUserSuspended
	}

	user := internalDTO.DirectoryUserDTO{
		ExternalID:     ext.ID,
		Email:          ext.PrimaryEmail,
		Fio:            ext.Name.FullName,
		Status:         status,
		DepartmentPath: ext.OrgUnitPath,
	}

	for _, org := range ext.Organizations {
		if org.Primary || user.Title == "" {
			if org.Title != "" {
				user.Title = org.Title
			}
		}
	}
	for _, rel := range ext.Relations {
		if rel.Type == "manager" {
			user.ManagerEmail = rel.Value
			break
		}
	}
	for _, phone := range ext.Phones {
		if phone.Primary || user.PhoneNumber == "" {
			user.PhoneNumber = phone.Value
		}
	}

	if ext.CreationTime != "" {
		if t, err := time.Parse(time.RFC3339, ext.CreationTime); err == nil {
			user.StartDate = &t
		}
	}
	if ext.LastLoginTime != "" && ext.LastLoginTime != neverLoggedIn {
		if t, err := time.Parse(time.RFC3339, ext.LastLoginTime); err == nil {
			user.LastLoginAt = &t
		}
	}

	return user, nil
}

func mapOrgUnitToInternal(ext OrgUnitDTO) internalDTO.DirectoryOrgUnitDTO {
	return internalDTO.DirectoryOrgUnitDTO{
		Name:       ext.Name,
		Path:       ext.OrgUnitPath,
		ParentPath: ext.ParentOrgUnitPath,
	}
}
