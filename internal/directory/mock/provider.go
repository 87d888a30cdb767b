package mock

import (
	"context"
	"strconv"

	"license-system/internal/directory"
	"license-system/internal/dto"
)

// MockProvider — каталог в памяти для тестов и локальной разработки.
// Пагинация честная: токен страницы — это смещение в списке.
type MockProvider struct {
	Users    []dto.DirectoryUserDTO
	OrgUnits []dto.DirectoryOrgUnitDTO

	// FailWith, если задан, возвращается из каждого вызова.
	FailWith error
	// Calls считает обращения к ListUsers.
	Calls int
}

func NewMockProvider(users []dto.DirectoryUserDTO) *MockProvider {
	return &MockProvider{Users: users}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) TestConnection(ctx context.Context) error {
	return m.FailWith
}

func (m *MockProvider) ListUsers(ctx context.Context, pageSize int, pageToken string) (*directory.UserPage, error) {
	m.Calls++
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if pageSize <= 0 {
		pageSize = 500
	}

	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	if offset >= len(m.Users) {
		return &directory.UserPage{}, nil
	}

	end := offset + pageSize
	if end > len(m.Users) {
		end = len(m.Users)
	}

	page := &directory.UserPage{Users: m.Users[offset:end]}
	if end < len(m.Users) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (m *MockProvider) GetUserByID(ctx context.Context, externalID string) (*dto.DirectoryUserDTO, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	for i := range m.Users {
		if m.Users[i].ExternalID == externalID {
			return &m.Users[i], nil
		}
	}
	return nil, &directory.Error{Kind: directory.KindNotFound, Status: 404, Msg: "пользователь " + externalID + " не найден"}
}

func (m *MockProvider) GetUserByEmail(ctx context.Context, email string) (*dto.DirectoryUserDTO, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	for i := range m.Users {
		if m.Users[i].Email == email {
			return &m.Users[i], nil
		}
	}
	return nil, &directory.Error{Kind: directory.KindNotFound, Status: 404, Msg: "пользователь " + email + " не найден"}
}

func (m *MockProvider) ListOrgUnits(ctx context.Context) ([]dto.DirectoryOrgUnitDTO, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	return m.OrgUnits, nil
}
