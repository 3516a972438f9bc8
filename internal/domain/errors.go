package domain

import (
	"errors"
	"fmt"
)

// ErrNotConfigured — провайдер не готов к вызову: нет организации,
// токена или base URL. Разбирается до первого сетевого обращения.
var ErrNotConfigured = errors.New("provider is not configured")

// TransportError — сбой сетевого уровня (DNS, TLS, таймаут).
// Отделен от HTTP-статусов, чтобы отчеты различали "провайдер недоступен"
// и "провайдер ответил отказом".
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// StatusError — провайдер ответил, но со статусом >= 400
// (протухший токен, not-found, rate limit).
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // Усечённое тело для диагностики
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
