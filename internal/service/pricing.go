package service

import (
	"fmt"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/shopspring/decimal"
)

// Quote рассчитывает стоимость заказа по единой формуле комиссии:
//
//	subtotal = base + urgent, total = subtotal
//	platform_fee = round(subtotal * PlatformFeeRate)
//	publisher_earnings = total - platform_fee
//	affiliate_fee = min(round(total * AffiliateFeeRate), platform_fee), только для приглашенных покупателей
//
// Округление - половина от нуля. Если услуга не оказывается сайтом (цена 0), возвращается
// domain.ErrServiceUnavailable.
func Quote(
	policy domain.PricingPolicy,
	site *domain.Website,
	orderType domain.OrderType,
	urgent bool,
	referred bool,
	now time.Time,
) (*domain.Quote, error) {
	base := site.PriceFor(orderType)
	if base <= 0 {
		return nil, fmt.Errorf("%w: %s is not offered by %s", domain.ErrServiceUnavailable, orderType, site.Domain)
	}

	q := domain.Quote{
		BasePrice:      base,
		TurnaroundDays: site.TurnaroundDays,
	}
	if q.TurnaroundDays < 1 {
		q.TurnaroundDays = 1
	}

	if urgent && site.OffersUrgent && site.PriceUrgent > 0 {
		q.IsUrgent = true
		q.UrgentFee = site.PriceUrgent
		// срочный заказ выполняется за половину срока, округление вверх.
		q.TurnaroundDays = (q.TurnaroundDays + 1) / 2
	}

	q.Subtotal = q.BasePrice + q.UrgentFee
	q.Total = q.Subtotal
	q.PlatformFee = percentOf(q.Subtotal, policy.PlatformFeeRate)
	q.PublisherEarnings = q.Total - q.PlatformFee

	if referred {
		q.AffiliateFee = min(percentOf(q.Total, policy.AffiliateFeeRate), q.PlatformFee)
	}

	q.Deadline = now.AddDate(0, 0, q.TurnaroundDays)
	return &q, nil
}

func percentOf(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
