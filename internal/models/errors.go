package models

import (
	"errors"
	"fmt"
)

// ValidationError - некорректные или отсутствующие данные запроса.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NewValidationError создаёт ошибку валидации.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidTransitionError - действие недопустимо из текущего статуса.
type InvalidTransitionError struct {
	From   TenderStatus
	Action TenderAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %q is not allowed for tender in status %q", e.Action, e.From)
}

// ConflictError - устаревшая версия, проигранная гонка или дубликат.
// Current заполняется, когда известно актуальное состояние тендера.
type ConflictError struct {
	Reason  string
	Current *Tender
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// NewConflictError создаёт ошибку конфликта.
func NewConflictError(reason string, current *Tender) *ConflictError {
	return &ConflictError{Reason: reason, Current: current}
}

// NotFoundError - сущность не найдена.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError создаёт ошибку отсутствия сущности.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// Коды ошибок для ответов API и результатов пакетных операций.
const (
	CodeValidation        = "VALIDATION"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL"
)

// ErrorCode возвращает код ошибки по её типу.
func ErrorCode(err error) string {
	var (
		validation *ValidationError
		transition *InvalidTransitionError
		conflict   *ConflictError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		return CodeValidation
	case errors.As(err, &transition):
		return CodeInvalidTransition
	case errors.As(err, &conflict):
		return CodeConflict
	case errors.As(err, &notFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
