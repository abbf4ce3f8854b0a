package domain

import (
	"fmt"
	"strings"
)

// Status описывает жизненный цикл заказа.
// Переходы не ограничены автоматом: любой статус можно выставить повторно,
// запрет на возврат в created проверяется на уровне сервиса.
type Status string

const (
	StatusCreated   Status = "created"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
	StatusCanceled  Status = "canceled"
)

// ParseStatus разбирает статус без учёта регистра.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusConfirmed, StatusDelivered, StatusRejected, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
