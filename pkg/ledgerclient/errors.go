package ledgerclient

import (
	"fmt"
	"time"
)

// StatusCodeError ответ сервера с неожиданным статусом. Message - текст из тела ответа {"error": ...}, если есть.
type StatusCodeError struct {
	Code    int
	Message string
}

func NewStatusCodeError(code int, message string) *StatusCodeError {
	return &StatusCodeError{Code: code, Message: message}
}

func (e *StatusCodeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Unexpected status code %d", e.Code)
	}
	return fmt.Sprintf("Unexpected status code %d: %s", e.Code, e.Message)
}

// UnavailableError сервер временно не смог провести операцию (503) или просит снизить нагрузку (429).
// Запрос можно повторить через RetryAfter.
type UnavailableError struct {
	RetryAfter time.Duration
}

func NewUnavailableError(retryAfter time.Duration) *UnavailableError {
	return &UnavailableError{RetryAfter: retryAfter}
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("Service unavailable. Need retry after %.f seconds", e.RetryAfter.Seconds())
}
