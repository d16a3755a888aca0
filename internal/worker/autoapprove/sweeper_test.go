package autoapprove

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/fsdevblog/guestmart/internal/worker/autoapprove/mocks"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type SweeperTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	orders  *mocks.MockOrderServicer
	purger  *mocks.MockRateLimitPurger
	sweeper *Sweeper
	clock   time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (s *SweeperTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.orders = mocks.NewMockOrderServicer(s.ctrl)
	s.purger = mocks.NewMockRateLimitPurger(s.ctrl)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.sweeper = New(s.orders, s.purger, logger).SetBatchSize(10)
	s.sweeper.now = func() time.Time { return s.clock }
}

func (s *SweeperTestSuite) TestSweep() {
	s.orders.EXPECT().AutoApproveExpired(gomock.Any(), s.clock, 10).Return([]service.AutoApproveResult{
		{OrderID: 1, OrderNumber: "PS-00000001", Completed: true},
		{OrderID: 2, OrderNumber: "PS-00000002", Err: errors.New("deadlock detected")},
		{OrderID: 3, OrderNumber: "PS-00000003"},
	}, nil)
	s.purger.EXPECT().PurgeRateLimits(gomock.Any()).Return(int64(2), nil)

	summary, err := s.sweeper.Sweep(s.T().Context())
	s.Require().NoError(err)
	s.Equal(Summary{Processed: 3, Completed: 1, Failed: 1, Purged: 2}, summary)
}

func (s *SweeperTestSuite) TestSweepErrors() {
	s.Run("select failed", func() {
		s.orders.EXPECT().AutoApproveExpired(gomock.Any(), s.clock, 10).Return(nil, errors.New("connection refused"))

		_, err := s.sweeper.Sweep(s.T().Context())
		s.Error(err)
	})

	s.Run("purge failure is not fatal", func() {
		s.orders.EXPECT().AutoApproveExpired(gomock.Any(), s.clock, 10).Return(nil, nil)
		s.purger.EXPECT().PurgeRateLimits(gomock.Any()).Return(int64(0), errors.New("connection refused"))

		summary, err := s.sweeper.Sweep(s.T().Context())
		s.Require().NoError(err)
		s.Equal(Summary{}, summary)
	})
}

func (s *SweeperTestSuite) TestSweepWithoutPurger() {
	s.sweeper.purger = nil
	s.orders.EXPECT().AutoApproveExpired(gomock.Any(), s.clock, 10).Return(nil, nil)

	_, err := s.sweeper.Sweep(s.T().Context())
	s.NoError(err)
}

func (s *SweeperTestSuite) TestRun() {
	s.sweeper.SetInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(s.T().Context())
	defer cancel()

	calls := make(chan struct{}, 8)
	s.orders.EXPECT().AutoApproveExpired(gomock.Any(), s.clock, 10).MinTimes(2).
		DoAndReturn(func(context.Context, time.Time, int) ([]service.AutoApproveResult, error) {
			select {
			case calls <- struct{}{}:
			default:
			}
			return nil, nil
		})
	s.purger.EXPECT().PurgeRateLimits(gomock.Any()).MinTimes(2).Return(int64(0), nil)

	done := make(chan error, 1)
	go func() { done <- s.sweeper.Run(ctx) }()

	for range 2 {
		select {
		case <-calls:
		case <-time.After(time.Second):
			s.FailNow("sweep was not triggered")
		}
	}
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.FailNow("sweeper did not stop")
	}
}
