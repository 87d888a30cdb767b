package errors

import "fmt"

var (
	// Общие
	ErrNotFound   = fmt.Errorf("запись не найдена")
	ErrBadRequest = fmt.Errorf("неверный запрос")

	// Жизненный цикл алертов
	ErrInvalidTransition    = fmt.Errorf("недопустимый переход статуса алерта")
	ErrInvalidSnoozeDate    = fmt.Errorf("дата отложения должна быть в будущем")
	ErrInvalidAlertKeyInput = fmt.Errorf("недостаточно данных для построения ключа алерта")

	// Синхронизация и каталог
	ErrIntegrationDisabled = fmt.Errorf("интеграция отключена")
	ErrTokenPersistence    = fmt.Errorf("не удалось сохранить обновлённые токены")
)

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
