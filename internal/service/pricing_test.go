package service

import (
	"testing"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PricingTestSuite struct {
	suite.Suite
	policy domain.PricingPolicy
	now    time.Time
}

func TestPricingSuite(t *testing.T) {
	suite.Run(t, new(PricingTestSuite))
}

func (s *PricingTestSuite) SetupTest() {
	s.policy = domain.DefaultPricingPolicy()
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PricingTestSuite) site() *domain.Website {
	return &domain.Website{
		ID:                 1,
		Domain:             "example.com",
		PriceGuestPost:     10000,
		PriceLinkInsertion: 4999,
		PriceUrgent:        2000,
		OffersUrgent:       true,
		TurnaroundDays:     7,
		IsActive:           true,
		VerificationStatus: domain.VerificationApproved,
	}
}

func (s *PricingTestSuite) TestQuote() {
	cases := []struct {
		name      string
		orderType domain.OrderType
		urgent    bool
		referred  bool
		mutate    func(w *domain.Website)
		want      domain.Quote
	}{
		{
			name:      "guest post without surcharge",
			orderType: domain.OrderTypeGuestPost,
			want: domain.Quote{
				BasePrice: 10000, Subtotal: 10000, PlatformFee: 2500, Total: 10000,
				PublisherEarnings: 7500, TurnaroundDays: 7,
			},
		},
		{
			name:      "urgent halves turnaround rounding up",
			orderType: domain.OrderTypeGuestPost,
			urgent:    true,
			want: domain.Quote{
				BasePrice: 10000, UrgentFee: 2000, Subtotal: 12000, PlatformFee: 3000, Total: 12000,
				PublisherEarnings: 9000, TurnaroundDays: 4, IsUrgent: true,
			},
		},
		{
			name:      "urgent ignored when website does not offer it",
			orderType: domain.OrderTypeGuestPost,
			urgent:    true,
			mutate:    func(w *domain.Website) { w.OffersUrgent = false },
			want: domain.Quote{
				BasePrice: 10000, Subtotal: 10000, PlatformFee: 2500, Total: 10000,
				PublisherEarnings: 7500, TurnaroundDays: 7,
			},
		},
		{
			name:      "fee rounds half away from zero",
			orderType: domain.OrderTypeLinkInsertion,
			want: domain.Quote{
				// 4999 * 0.25 = 1249.75
				BasePrice: 4999, Subtotal: 4999, PlatformFee: 1250, Total: 4999,
				PublisherEarnings: 3749, TurnaroundDays: 7,
			},
		},
		{
			name:      "referred buyer carves affiliate fee out of platform fee",
			orderType: domain.OrderTypeGuestPost,
			referred:  true,
			want: domain.Quote{
				BasePrice: 10000, Subtotal: 10000, PlatformFee: 2500, AffiliateFee: 750, Total: 10000,
				PublisherEarnings: 7500, TurnaroundDays: 7,
			},
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			site := s.site()
			if tc.mutate != nil {
				tc.mutate(site)
			}
			q, err := Quote(s.policy, site, tc.orderType, tc.urgent, tc.referred, s.now)
			s.Require().NoError(err)

			tc.want.Deadline = s.now.AddDate(0, 0, tc.want.TurnaroundDays)
			s.Equal(tc.want, *q)

			s.Equal(q.BasePrice+q.UrgentFee, q.Total)
			s.Equal(q.Total-q.PlatformFee, q.PublisherEarnings)
			s.GreaterOrEqual(q.PublisherEarnings, int64(0))
			s.LessOrEqual(q.AffiliateFee, q.PlatformFee)
		})
	}
}

func (s *PricingTestSuite) TestAffiliateFeeCappedByPlatformFee() {
	s.policy.PlatformFeeRate = decimal.RequireFromString("0.05")
	q, err := Quote(s.policy, s.site(), domain.OrderTypeGuestPost, false, true, s.now)
	s.Require().NoError(err)
	s.Equal(int64(500), q.PlatformFee)
	s.Equal(int64(500), q.AffiliateFee)
}

func (s *PricingTestSuite) TestServiceNotOffered() {
	site := s.site()
	site.PriceLinkInsertion = 0

	_, err := Quote(s.policy, site, domain.OrderTypeLinkInsertion, false, false, s.now)
	s.ErrorIs(err, domain.ErrServiceUnavailable)
}
