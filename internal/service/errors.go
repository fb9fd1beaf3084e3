package service

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_ERROR"
	CodeForbidden        = "FORBIDDEN"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeConflict         = "CONFLICT"
)

// Resource - название сущности в сообщениях об ошибках
type Resource string

const (
	ResourceTask     Resource = "Задача"
	ResourceSubtask  Resource = "Подзадача"
	ResourceTemplate Resource = "Шаблон"
	ResourceItem     Resource = "Объект подзадачи"
	ResourceUser     Resource = "Пользователь"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: reason,
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewForbidden(message string) *BusinessError {
	return NewBusinessError(CodeForbidden, message)
}

// AsBusiness достаёт BusinessError из цепочки ошибок
func AsBusiness(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}

func HasCode(err error, code string) bool {
	busErr, ok := AsBusiness(err)
	return ok && busErr.Code == code
}
