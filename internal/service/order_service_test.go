package service

import (
	"testing"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/stretchr/testify/suite"
)

// orderFixture общее окружение тестов заказов: покупатель приглашен партнером,
// у исполнителя одобренный сайт с гостевым постом за $100.
type orderFixture struct {
	suite.Suite
	store     *memStore
	notifier  *recordingNotifier
	srv       *OrderService
	clock     time.Time
	buyer     domain.Actor
	publisher domain.Actor
	affiliate domain.Actor
	admin     domain.Actor
	site      *domain.Website
}

const buyerStartBalance int64 = 50000

func (s *orderFixture) SetupTest() {
	s.store = newMemStore()
	s.notifier = &recordingNotifier{}
	s.clock = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	srv, err := NewOrderService(&memUOW{s: s.store}, domain.DefaultPricingPolicy(), s.notifier)
	s.Require().NoError(err)
	srv.now = func() time.Time { return s.clock }
	s.srv = srv

	aff := s.store.addUser(domain.RoleAffiliate, domain.Balances{})
	buyer := s.store.addUser(domain.RoleBuyer, domain.Balances{Buyer: buyerStartBalance})
	s.store.setReferrer(buyer.ID, aff.ID)
	pub := s.store.addUser(domain.RolePublisher, domain.Balances{})
	admin := s.store.addUser(domain.RoleAdmin, domain.Balances{})

	s.affiliate = domain.Actor{UserID: aff.ID, Role: domain.RoleAffiliate}
	s.buyer = domain.Actor{UserID: buyer.ID, Role: domain.RoleBuyer}
	s.publisher = domain.Actor{UserID: pub.ID, Role: domain.RolePublisher}
	s.admin = domain.Actor{UserID: admin.ID, Role: domain.RoleAdmin}

	s.site = s.store.addWebsite(domain.Website{
		OwnerID:            pub.ID,
		Domain:             "blog.example.com",
		PriceGuestPost:     10000,
		PriceUrgent:        3000,
		OffersUrgent:       true,
		TurnaroundDays:     7,
		IsActive:           true,
		VerificationStatus: domain.VerificationApproved,
	})
}

func (s *orderFixture) createArgs(payWithWallet bool) CreateOrderArgs {
	return CreateOrderArgs{
		WebsiteID:     s.site.ID,
		OrderType:     domain.OrderTypeGuestPost,
		TargetURL:     "https://shop.example.com/product",
		AnchorText:    "best product",
		PayWithWallet: payWithWallet,
	}
}

// paidOrder создает оплаченный с кошелька заказ.
func (s *orderFixture) paidOrder() *domain.Order {
	order, err := s.srv.Create(s.T().Context(), s.buyer, s.createArgs(true))
	s.Require().NoError(err)
	return order
}

// publishedOrder проводит заказ до публикации.
func (s *orderFixture) publishedOrder() *domain.Order {
	order := s.paidOrder()
	_, err := s.srv.UpdateStatus(s.T().Context(), s.publisher, order.ID, UpdateStatusArgs{Status: domain.OrderStatusAccepted})
	s.Require().NoError(err)
	order, err = s.srv.UpdateStatus(s.T().Context(), s.publisher, order.ID, UpdateStatusArgs{
		Status:     domain.OrderStatusPublished,
		ArticleURL: "https://blog.example.com/post",
	})
	s.Require().NoError(err)
	return order
}

// assertLedger журнал сходится с изменением баланса относительно начального значения.
func (s *orderFixture) assertLedger(userID int64, bt domain.BalanceType, start int64) {
	u := s.store.user(userID)
	s.Equal(u.Balances.Get(bt)-start, s.store.ledgerSum(userID, bt), "ledger of user %d %s", userID, bt)
}

type OrderServiceTestSuite struct {
	orderFixture
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) TestCreateWithWallet() {
	order := s.paidOrder()

	s.Equal(int64(10000), order.TotalAmount)
	s.Equal(int64(2500), order.PlatformFee)
	s.Equal(int64(7500), order.PublisherEarnings)
	s.Equal(int64(750), order.AffiliateFee)
	s.Equal(&s.affiliate.UserID, order.AffiliateID)
	s.Equal(domain.OrderStatusPending, order.Status)
	s.Equal(domain.PaymentStatusPaid, order.PaymentStatus)
	s.Equal(s.clock.AddDate(0, 0, 7), order.DeadlineAt)
	s.Regexp(`^PS-[0-9A-F]{8}$`, order.OrderNumber)

	s.Equal(buyerStartBalance-10000, s.store.user(s.buyer.UserID).Buyer)
	rows := s.store.ledgerFor(s.buyer.UserID, domain.BalanceBuyer)
	s.Require().Len(rows, 1)
	s.Equal(domain.TransactionPurchase, rows[0].Type)
	s.Equal("Wallet payment for order "+order.OrderNumber, rows[0].Description)
	s.assertLedger(s.buyer.UserID, domain.BalanceBuyer, buyerStartBalance)

	s.Equal([]domain.NotificationKind{domain.NotifyOrderPlaced, domain.NotifyOrderReceived}, s.notifier.kinds())
}

func (s *OrderServiceTestSuite) TestCreateUrgent() {
	args := s.createArgs(false)
	args.Urgent = true
	order, err := s.srv.Create(s.T().Context(), s.buyer, args)
	s.Require().NoError(err)

	s.True(order.IsUrgent)
	s.Equal(int64(13000), order.TotalAmount)
	s.Equal(int64(3250), order.PlatformFee)
	s.Equal(4, order.TurnaroundDays)
	s.Equal(domain.PaymentStatusPending, order.PaymentStatus)
	s.Equal(buyerStartBalance, s.store.user(s.buyer.UserID).Buyer)
}

func (s *OrderServiceTestSuite) TestCreateInsufficientFundsPersistsNothing() {
	poor := s.store.addUser(domain.RoleBuyer, domain.Balances{Buyer: 5000})
	actor := domain.Actor{UserID: poor.ID, Role: domain.RoleBuyer}

	_, err := s.srv.Create(s.T().Context(), actor, s.createArgs(true))
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	s.Zero(s.store.orderCount())
	s.Equal(int64(5000), s.store.user(poor.ID).Buyer)
	s.Empty(s.store.ledgerFor(poor.ID, domain.BalanceBuyer))
	s.Empty(s.notifier.kinds())
}

func (s *OrderServiceTestSuite) TestCreateValidation() {
	hidden := s.store.addWebsite(domain.Website{
		OwnerID:            s.publisher.UserID,
		Domain:             "hidden.example.com",
		PriceGuestPost:     5000,
		IsActive:           true,
		VerificationStatus: domain.VerificationPending,
	})

	tests := []struct {
		name    string
		actor   domain.Actor
		mutate  func(a *CreateOrderArgs)
		wantErr error
	}{
		{
			name:    "unknown_type",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.OrderType = "press_release" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "bad_url",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.TargetURL = "not a url" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "empty_anchor",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.AnchorText = "  " },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "bad_content_source",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.ContentSource = "ai" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "own_site",
			actor:   s.publisher,
			mutate:  func(*CreateOrderArgs) {},
			wantErr: domain.ErrForbidden,
		},
		{
			name:    "unverified_site",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.WebsiteID = hidden.ID },
			wantErr: domain.ErrRecordNotFound,
		},
		{
			name:    "missing_site",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.WebsiteID = 9999 },
			wantErr: domain.ErrRecordNotFound,
		},
		{
			name:    "service_not_offered",
			actor:   s.buyer,
			mutate:  func(a *CreateOrderArgs) { a.OrderType = domain.OrderTypeLinkInsertion },
			wantErr: domain.ErrServiceUnavailable,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			args := s.createArgs(true)
			tt.mutate(&args)
			_, err := s.srv.Create(s.T().Context(), tt.actor, args)
			s.Require().ErrorIs(err, tt.wantErr)
		})
	}
	s.Zero(s.store.orderCount())
}

func (s *OrderServiceTestSuite) TestOrderNumberCollision() {
	numbers := []string{"PS-AAAAAAAA", "PS-AAAAAAAA", "PS-BBBBBBBB"}
	calls := 0
	s.srv.newNumber = func() string {
		n := numbers[min(calls, len(numbers)-1)]
		calls++
		return n
	}

	first := s.paidOrder()
	s.Equal("PS-AAAAAAAA", first.OrderNumber)

	second := s.paidOrder()
	s.Equal("PS-BBBBBBBB", second.OrderNumber)
	s.Equal(3, calls)
	// коллизия номера не оставила следов в журнале.
	s.Equal(buyerStartBalance-20000, s.store.user(s.buyer.UserID).Buyer)
	s.assertLedger(s.buyer.UserID, domain.BalanceBuyer, buyerStartBalance)

	calls = 0
	s.srv.newNumber = func() string {
		calls++
		return "PS-AAAAAAAA"
	}
	_, err := s.srv.Create(s.T().Context(), s.buyer, s.createArgs(true))
	s.Require().ErrorIs(err, domain.ErrUnknown)
	s.Equal(maxOrderNumberAttempts, calls)
	s.Equal(2, s.store.orderCount())
}

func (s *OrderServiceTestSuite) TestPayWithWallet() {
	order, err := s.srv.Create(s.T().Context(), s.buyer, s.createArgs(false))
	s.Require().NoError(err)

	_, err = s.srv.PayWithWallet(s.T().Context(), s.publisher, order.ID)
	s.Require().ErrorIs(err, domain.ErrForbidden)

	paid, err := s.srv.PayWithWallet(s.T().Context(), s.buyer, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, paid.PaymentStatus)
	s.Equal(&s.clock, paid.PaidAt)

	_, err = s.srv.PayWithWallet(s.T().Context(), s.buyer, order.ID)
	s.Require().ErrorIs(err, domain.ErrConflict)
	s.Equal(buyerStartBalance-10000, s.store.user(s.buyer.UserID).Buyer)
}

func (s *OrderServiceTestSuite) TestGetAndList() {
	order := s.paidOrder()

	got, err := s.srv.Get(s.T().Context(), s.publisher, order.ID)
	s.Require().NoError(err)
	s.Equal(order.OrderNumber, got.OrderNumber)

	_, err = s.srv.Get(s.T().Context(), s.affiliate, order.ID)
	s.Require().ErrorIs(err, domain.ErrForbidden)

	_, err = s.srv.Get(s.T().Context(), s.admin, order.ID)
	s.Require().NoError(err)

	list, total, err := s.srv.List(s.T().Context(), s.publisher, ListOrdersArgs{Page: domain.Page{Page: 1, Limit: 10}})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)

	list, _, err = s.srv.List(s.T().Context(), s.publisher, ListOrdersArgs{View: repoargs.ScopeBuyer})
	s.Require().NoError(err)
	s.Empty(list)

	_, _, err = s.srv.List(s.T().Context(), s.buyer, ListOrdersArgs{View: repoargs.ScopeAll})
	s.Require().ErrorIs(err, domain.ErrForbidden)

	status := domain.OrderStatusCompleted
	_, total, err = s.srv.List(s.T().Context(), s.admin, ListOrdersArgs{View: repoargs.ScopeAll, Status: &status})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *OrderServiceTestSuite) TestMessages() {
	order := s.paidOrder()

	_, err := s.srv.PostMessage(s.T().Context(), s.buyer, order.ID, " ")
	s.Require().ErrorIs(err, domain.ErrValidation)
	_, err = s.srv.PostMessage(s.T().Context(), s.affiliate, order.ID, "hello")
	s.Require().ErrorIs(err, domain.ErrForbidden)

	msg, err := s.srv.PostMessage(s.T().Context(), s.buyer, order.ID, "Please use the anchor exactly")
	s.Require().NoError(err)
	s.Equal(&s.buyer.UserID, msg.SenderID)

	list, err := s.srv.Messages(s.T().Context(), s.publisher, order.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.True(list[0].IsRead)
}
