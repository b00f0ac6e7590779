package model

import (
	"errors"
	"fmt"
)

// Категории ошибок. Конкретные ошибки оборачивают одну из них,
// поэтому вызывающий код проверяет категорию через errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrBadRequest        = errors.New("bad request")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrPersistence       = errors.New("persistence error")
)

// AppError несёт категорию ошибки и сообщение, которое можно показать клиенту.
type AppError struct {
	Kind    error
	Message string
	cause   error
}

// Error возвращает сообщение вместе с причиной, если она есть.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap позволяет errors.Is сопоставлять и категорию, и исходную причину.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// NotFound возвращает ошибку отсутствующей сущности.
func NotFound(msg string) error {
	return &AppError{Kind: ErrNotFound, Message: msg}
}

// BadRequest возвращает ошибку некорректного запроса.
func BadRequest(msg string) error {
	return &AppError{Kind: ErrBadRequest, Message: msg}
}

// InsufficientFunds возвращает ошибку нехватки средств на балансе.
func InsufficientFunds(msg string) error {
	return &AppError{Kind: ErrInsufficientFunds, Message: msg}
}

// Conflict возвращает ошибку конфликта с существующими данными.
func Conflict(msg string) error {
	return &AppError{Kind: ErrConflict, Message: msg}
}

// Forbidden возвращает ошибку недостаточных прав.
func Forbidden(msg string) error {
	return &AppError{Kind: ErrForbidden, Message: msg}
}

// Unauthorized возвращает ошибку отсутствующих или недействительных учётных данных.
func Unauthorized(msg string) error {
	return &AppError{Kind: ErrUnauthorized, Message: msg}
}

// Persistence оборачивает ошибку хранилища. Клиенту уходит только общее
// сообщение, причина остаётся для логов.
func Persistence(cause error) error {
	return &AppError{Kind: ErrPersistence, Message: "database error", cause: cause}
}

// PublicMessage возвращает сообщение, безопасное для ответа клиенту.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
