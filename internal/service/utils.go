package service

import (
	"errors"
	"strings"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// formatCents форматирует сумму в центах как доллары с двумя знаками: 12345 -> "123.45".
func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// shortCode возвращает первые 8 hex символов случайного UUID в верхнем регистре.
func shortCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// resultLabel значение метки result для метрик по ошибке операции.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	}
	return "error"
}
