package domain

import (
	"errors"
	"fmt"

	"git.appkode.ru/pub/go/failure"

	"pocamarket/pkg/errcodes"
)

var (
	// ErrTxConflict хранилище обнаружило конкурентную запись; транзакцию можно повторить.
	ErrTxConflict = errors.New("transaction conflict")

	// ErrInvariantViolation нарушен инвариант сущности. Ошибка программиста, не пользователя.
	ErrInvariantViolation = NewError(errcodes.InvariantViolation, "invariant violation")
)

// AppError представляет доменную ошибку приложения.
type AppError struct {
	Code    failure.ErrorCode
	Message string
	cause   error
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает обёрнутую ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is позволяет сравнивать с ошибками-образцами (без cause) по коду.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.cause != nil {
		return false
	}
	return t.Code == e.Code
}

// NewError создаёт новую доменную ошибку.
func NewError(code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError оборачивает существующую ошибку с доменным контекстом.
func WrapError(err error, code failure.ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   err,
	}
}

// IsAppError проверяет, является ли ошибка доменной.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode извлекает код ошибки, если это AppError.
func GetCode(err error) (failure.ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return "", false
}

// HasCode проверяет код первой доменной ошибки в цепочке.
func HasCode(err error, code failure.ErrorCode) bool {
	c, ok := GetCode(err)
	return ok && c == code
}
