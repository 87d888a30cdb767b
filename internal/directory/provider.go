// Файл: internal/directory/provider.go
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"license-system/internal/dto"
)

// UserPage — одна страница выборки пользователей каталога.
type UserPage struct {
	Users         []dto.DirectoryUserDTO
	NextPageToken string
}

// Provider — контракт внешнего каталога (Workspace Admin API и т.п.).
// Полный список пользователей собирается вызывающей стороной циклом
// по ListUsers до исчерпания NextPageToken.
type Provider interface {
	Name() string
	TestConnection(ctx context.Context) error
	ListUsers(ctx context.Context, pageSize int, pageToken string) (*UserPage, error)
	GetUserByID(ctx context.Context, externalID string) (*dto.DirectoryUserDTO, error)
	GetUserByEmail(ctx context.Context, email string) (*dto.DirectoryUserDTO, error)
	ListOrgUnits(ctx context.Context) ([]dto.DirectoryOrgUnitDTO, error)
}

type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindServerError ErrorKind = "transient_server_error"
	KindAuthFailed  ErrorKind = "auth_failed"
	KindNotFound    ErrorKind = "not_found"
	KindUnknown     ErrorKind = "unknown"
)

// Error — классифицированная ошибка каталога. Повторяются только
// rate_limited и transient_server_error.
type Error struct {
	Kind   ErrorKind
	Status int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ошибка каталога (%s, HTTP %d): %s", e.Kind, e.Status, e.Msg)
}

func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindServerError
}

// ClassifyStatus переводит не-2xx ответ API в ошибку нашей таксономии.
func ClassifyStatus(status int, msg string) *Error {
	kind := KindUnknown
	switch {
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindServerError
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuthFailed
	case status == http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Kind: kind, Status: status, Msg: msg}
}

func IsNotFound(err error) bool {
	var dirErr *Error
	return errors.As(err, &dirErr) && dirErr.Kind == KindNotFound
}

func IsAuthFailed(err error) bool {
	var dirErr *Error
	return errors.As(err, &dirErr) && dirErr.Kind == KindAuthFailed
}

func IsRetryable(err error) bool {
	var dirErr *Error
	return errors.As(err, &dirErr) && dirErr.Retryable()
}
