package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingPolicy денежные и временные параметры площадки.
type PricingPolicy struct {
	PlatformFeeRate    decimal.Decimal
	AffiliateFeeRate   decimal.Decimal
	MinPayout          int64
	ConfirmationWindow time.Duration
	DisputeProtection  time.Duration
	APIRateLimit       int
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		PlatformFeeRate:    decimal.RequireFromString("0.25"),
		AffiliateFeeRate:   decimal.RequireFromString("0.075"),
		MinPayout:          500,
		ConfirmationWindow: 3 * 24 * time.Hour,
		DisputeProtection:  90 * 24 * time.Hour,
		APIRateLimit:       100,
	}
}

// Quote расчет стоимости заказа. Все суммы в центах.
type Quote struct {
	BasePrice         int64
	UrgentFee         int64
	Subtotal          int64
	PlatformFee       int64
	AffiliateFee      int64
	Total             int64
	PublisherEarnings int64
	TurnaroundDays    int
	IsUrgent          bool
	Deadline          time.Time
}
