package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service/mocks"
	uowmocks "github.com/fsdevblog/guestmart/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type PayoutServiceTestSuite struct {
	suite.Suite
	store    *memStore
	notifier *recordingNotifier
	srv      *PayoutService
	admin    domain.Actor
}

func TestPayoutServiceSuite(t *testing.T) {
	suite.Run(t, new(PayoutServiceTestSuite))
}

func (s *PayoutServiceTestSuite) SetupTest() {
	s.store = newMemStore()
	s.notifier = &recordingNotifier{}
	srv, err := NewPayoutService(&memUOW{s: s.store}, domain.DefaultPricingPolicy(), s.notifier)
	s.Require().NoError(err)
	s.srv = srv
	s.admin = domain.Actor{UserID: s.store.addUser(domain.RoleAdmin, domain.Balances{}).ID, Role: domain.RoleAdmin}
}

func (s *PayoutServiceTestSuite) publisher(balance int64) domain.Actor {
	u := s.store.addUser(domain.RolePublisher, domain.Balances{Publisher: balance})
	return domain.Actor{UserID: u.ID, Role: domain.RolePublisher}
}

func (s *PayoutServiceTestSuite) TestValidationBeforeTransaction() {
	ctrl := gomock.NewController(s.T())
	u := uowmocks.NewMockUOW(ctrl)
	u.EXPECT().GetRepository(gomock.Any()).Return(mocks.NewMockPayoutRepository(ctrl), nil)
	u.EXPECT().Do(gomock.Any(), gomock.Any()).Times(0)

	srv, err := NewPayoutService(u, domain.DefaultPricingPolicy(), s.notifier)
	s.Require().NoError(err)

	tests := []struct {
		name string
		args RequestPayoutArgs
	}{
		{
			name: "below_minimum",
			args: RequestPayoutArgs{Amount: 499, BalanceType: domain.BalancePublisher, Method: domain.PayoutWalletTransfer},
		},
		{
			name: "buyer_balance",
			args: RequestPayoutArgs{Amount: 1000, BalanceType: domain.BalanceBuyer, Method: domain.PayoutWalletTransfer},
		},
		{
			name: "missing_email",
			args: RequestPayoutArgs{Amount: 1000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayPal},
		},
		{
			name: "bad_email",
			args: RequestPayoutArgs{
				Amount: 1000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayoneer, DestinationEmail: "nope",
			},
		},
		{
			name: "unknown_method",
			args: RequestPayoutArgs{Amount: 1000, BalanceType: domain.BalanceAffiliate, Method: "crypto"},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := srv.Request(s.T().Context(), domain.Actor{UserID: 1, Role: domain.RolePublisher}, tt.args)
			s.Require().ErrorIs(err, domain.ErrValidation)
		})
	}
}

func (s *PayoutServiceTestSuite) TestWalletTransfer() {
	pub := s.publisher(3000)

	res, err := s.srv.Request(s.T().Context(), pub, RequestPayoutArgs{
		Amount: 3000, BalanceType: domain.BalancePublisher, Method: domain.PayoutWalletTransfer,
	})
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusCompleted, res.Payout.Status)
	s.Equal(domain.Balances{Buyer: 3000}, res.Balances)

	rows := s.store.ledgerFor(pub.UserID, domain.BalancePublisher)
	s.Require().Len(rows, 1)
	s.Equal(int64(-3000), rows[0].Amount)
	s.Equal(int64(3000), s.store.ledgerSum(pub.UserID, domain.BalanceBuyer))
	s.Empty(s.notifier.kinds())
}

func (s *PayoutServiceTestSuite) TestExternalPayoutLifecycle() {
	pub := s.publisher(10000)
	args := RequestPayoutArgs{
		Amount: 4000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayPal, DestinationEmail: "pub@example.com",
	}

	res, err := s.srv.Request(s.T().Context(), pub, args)
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusPending, res.Payout.Status)
	s.Equal(int64(6000), res.Balances.Publisher)

	rows := s.store.ledgerFor(pub.UserID, domain.BalancePublisher)
	s.Require().Len(rows, 1)
	s.Equal("PAYPAL payout request", rows[0].Description)
	s.Require().NotNil(rows[0].PayoutRequestID)
	s.Equal(res.Payout.ID, *rows[0].PayoutRequestID)

	_, err = s.srv.Request(s.T().Context(), pub, args)
	s.Require().ErrorIs(err, domain.ErrConflict)
	s.Equal(int64(6000), s.store.user(pub.UserID).Publisher)

	_, err = s.srv.MarkProcessing(s.T().Context(), pub, res.Payout.ID)
	s.Require().ErrorIs(err, domain.ErrForbidden)

	p, err := s.srv.MarkProcessing(s.T().Context(), s.admin, res.Payout.ID)
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusProcessing, p.Status)

	_, err = s.srv.MarkProcessing(s.T().Context(), s.admin, res.Payout.ID)
	s.Require().ErrorIs(err, domain.ErrConflict)

	p, err = s.srv.MarkPaid(s.T().Context(), s.admin, res.Payout.ID, "txn 123")
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusCompleted, p.Status)
	s.Equal(int64(6000), s.store.user(pub.UserID).Publisher)

	_, err = s.srv.Reject(s.T().Context(), s.admin, res.Payout.ID, "too late")
	s.Require().ErrorIs(err, domain.ErrConflict)

	s.Equal([]domain.NotificationKind{domain.NotifyPayoutRequested, domain.NotifyPayoutPaid}, s.notifier.kinds())
}

func (s *PayoutServiceTestSuite) TestRejectRestoresFunds() {
	pub := s.publisher(5000)
	res, err := s.srv.Request(s.T().Context(), pub, RequestPayoutArgs{
		Amount: 5000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayoneer, DestinationEmail: "p@example.com",
	})
	s.Require().NoError(err)
	s.Equal(int64(0), s.store.user(pub.UserID).Publisher)

	_, err = s.srv.Reject(s.T().Context(), s.admin, res.Payout.ID, "")
	s.Require().ErrorIs(err, domain.ErrValidation)

	p, err := s.srv.Reject(s.T().Context(), s.admin, res.Payout.ID, "invalid account")
	s.Require().NoError(err)
	s.Equal(domain.PayoutStatusRejected, p.Status)
	s.Equal(int64(5000), s.store.user(pub.UserID).Publisher)

	rows := s.store.ledgerFor(pub.UserID, domain.BalancePublisher)
	s.Require().Len(rows, 2)
	s.Equal(domain.TransactionRefund, rows[1].Type)
	s.Contains(rows[1].Description, "rejected: invalid account")
	s.Equal(int64(0), s.store.ledgerSum(pub.UserID, domain.BalancePublisher))

	// после отклонения можно создать новую заявку.
	_, err = s.srv.Request(s.T().Context(), pub, RequestPayoutArgs{
		Amount: 1000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayoneer, DestinationEmail: "p@example.com",
	})
	s.Require().NoError(err)
}

func (s *PayoutServiceTestSuite) TestInsufficientFundsLeavesNoPayout() {
	pub := s.publisher(400)
	_, err := s.srv.Request(s.T().Context(), pub, RequestPayoutArgs{
		Amount: 500, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayPal, DestinationEmail: "p@example.com",
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	list, total, err := s.srv.List(s.T().Context(), pub, ListPayoutsArgs{Page: domain.Page{Page: 1, Limit: 10}})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(list)
	s.Empty(s.store.ledgerFor(pub.UserID, domain.BalancePublisher))
}

func (s *PayoutServiceTestSuite) TestConcurrentRequests() {
	tests := []struct {
		name      string
		method    domain.PayoutMethod
		wantBuyer int64
	}{
		{name: "wallet_transfer", method: domain.PayoutWalletTransfer, wantBuyer: 3000},
		{name: "paypal", method: domain.PayoutPayPal},
		{name: "payoneer", method: domain.PayoutPayoneer},
	}
	for _, t := range tests {
		s.Run(t.name, func() {
			pub := s.publisher(3000)
			args := RequestPayoutArgs{
				Amount: 3000, BalanceType: domain.BalancePublisher, Method: t.method, DestinationEmail: "p@example.com",
			}

			var (
				wg    sync.WaitGroup
				start = make(chan struct{})
				errs  = make(chan error, 2)
			)
			for range 2 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := s.srv.Request(s.T().Context(), pub, args)
					errs <- err
				}()
			}
			close(start)
			wg.Wait()
			close(errs)

			var ok, insufficient int
			for err := range errs {
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrInsufficientFunds):
					insufficient++
				default:
					s.Failf("unexpected error", "%v", err)
				}
			}
			s.Equal(1, ok)
			s.Equal(1, insufficient)

			u := s.store.user(pub.UserID)
			s.Equal(int64(0), u.Publisher)
			s.Equal(t.wantBuyer, u.Buyer)
			s.Equal(int64(-3000), s.store.ledgerSum(pub.UserID, domain.BalancePublisher))
		})
	}
}

func (s *PayoutServiceTestSuite) TestExternalRequestAfterBalanceDrained() {
	pub := s.publisher(3000)
	args := RequestPayoutArgs{
		Amount: 3000, BalanceType: domain.BalancePublisher, Method: domain.PayoutPayoneer, DestinationEmail: "p@example.com",
	}

	_, err := s.srv.Request(s.T().Context(), pub, args)
	s.Require().NoError(err)

	_, err = s.srv.Request(s.T().Context(), pub, args)
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
	s.NotErrorIs(err, domain.ErrConflict)
	s.Len(s.store.ledgerFor(pub.UserID, domain.BalancePublisher), 1)
}

func (s *PayoutServiceTestSuite) TestListAll() {
	pub := s.publisher(2000)
	_, err := s.srv.Request(s.T().Context(), pub, RequestPayoutArgs{
		Amount: 1000, BalanceType: domain.BalancePublisher, Method: domain.PayoutWalletTransfer,
	})
	s.Require().NoError(err)

	_, _, err = s.srv.ListAll(s.T().Context(), pub, ListPayoutsArgs{})
	s.Require().ErrorIs(err, domain.ErrForbidden)

	list, total, err := s.srv.ListAll(s.T().Context(), s.admin, ListPayoutsArgs{Page: domain.Page{Page: 1, Limit: 20}})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)
}
