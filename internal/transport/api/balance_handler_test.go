package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type BalanceHandlerTestSuite struct {
	handlerSuite
	publisher domain.Actor
	admin     domain.Actor
}

func TestBalanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(BalanceHandlerTestSuite))
}

func (s *BalanceHandlerTestSuite) SetupTest() {
	s.handlerSuite.SetupTest()
	s.publisher = domain.Actor{UserID: 20, Role: domain.RolePublisher}
	s.admin = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
}

func (s *BalanceHandlerTestSuite) TestIndex() {
	s.ledgerSvs.EXPECT().Balances(gomock.Any(), s.publisher.UserID).
		Return(&domain.Balances{Buyer: 150, Publisher: 7500}, nil)

	res := s.request(http.MethodGet, RouteGroup+BalanceRoute, nil, s.token(s.publisher.UserID, s.publisher.Role))
	s.Require().Equal(http.StatusOK, res.status)

	var body BalanceResponse
	res.decode(&s.handlerSuite, &body)
	s.Equal(int64(7500), body.Publisher.Cents)
	s.Equal("75", body.Publisher.Amount.String())
	s.Equal("1.5", body.Buyer.Amount.String())
	s.Equal(int64(0), body.Affiliate.Cents)
}

func (s *BalanceHandlerTestSuite) TestTransactions() {
	bt := domain.BalancePublisher
	orderID := int64(3)
	s.ledgerSvs.EXPECT().
		History(gomock.Any(), service.HistoryArgs{
			UserID:      s.publisher.UserID,
			BalanceType: &bt,
			Page:        domain.Page{Page: 1, Limit: 10},
		}).
		Return([]domain.BalanceTransaction{{
			ID:            1,
			BalanceType:   domain.BalancePublisher,
			Type:          domain.TransactionEarning,
			Amount:        7500,
			BalanceBefore: 0,
			BalanceAfter:  7500,
			OrderID:       &orderID,
		}}, int64(11), nil)

	token := s.token(s.publisher.UserID, s.publisher.Role)
	res := s.request(http.MethodGet, RouteGroup+BalanceTransactionsRoute+"?balance_type=publisher&limit=10", nil, token)
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	var body ListResponse[TransactionResponse]
	res.decode(&s.handlerSuite, &body)
	s.Require().Len(body.Data, 1)
	s.Equal(domain.TransactionEarning, body.Data[0].Type)
	s.True(body.Pagination.HasMore)

	res = s.request(http.MethodGet, RouteGroup+BalanceTransactionsRoute+"?balance_type=savings", nil, token)
	s.Equal(http.StatusBadRequest, res.status)
}

func (s *BalanceHandlerTestSuite) TestAdjust() {
	url := RouteGroup + AdminGroup + "/users/20/balance"
	s.ledgerSvs.EXPECT().
		Adjust(gomock.Any(), s.admin, service.AdjustArgs{
			UserID:      20,
			BalanceType: domain.BalanceBuyer,
			Amount:      5000,
			Reason:      "wallet top up",
		}).
		Return(&domain.BalanceTransaction{ID: 1, Type: domain.TransactionAdjustment, Amount: 5000}, nil)
	s.ledgerSvs.EXPECT().
		Adjust(gomock.Any(), s.admin, gomock.Any()).
		Return(nil, fmt.Errorf("adjust: %w", domain.ErrInsufficientFunds))

	adminToken := s.token(s.admin.UserID, s.admin.Role)
	res := s.request(http.MethodPost, url, map[string]any{
		"balance_type": "buyer",
		"amount":       5000,
		"reason":       "wallet top up",
	}, adminToken)
	s.Require().Equal(http.StatusOK, res.status, string(res.body))

	res = s.request(http.MethodPost, url, map[string]any{
		"balance_type": "buyer",
		"amount":       -999999,
		"reason":       "chargeback",
	}, adminToken)
	s.Equal(http.StatusBadRequest, res.status)
	s.Equal("INSUFFICIENT_FUNDS", res.errBody.Code)

	res = s.request(http.MethodPost, url, map[string]any{
		"balance_type": "buyer",
		"amount":       5000,
		"reason":       "self top up",
	}, s.token(s.publisher.UserID, s.publisher.Role))
	s.Equal(http.StatusForbidden, res.status)
}
