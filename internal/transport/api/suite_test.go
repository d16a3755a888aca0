package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/logger"
	"github.com/fsdevblog/guestmart/internal/service/tokens"
	"github.com/fsdevblog/guestmart/internal/transport/api/mocks"
	"github.com/fsdevblog/guestmart/internal/transport/api/testutils"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

const testCronSecret = "cron-secret"

// handlerSuite общая часть тестов обработчиков: роутер поверх моков всех сервисов.
type handlerSuite struct {
	suite.Suite
	router     *gin.Engine
	jwtSecret  []byte
	userSvs    *mocks.MockUserServicer
	websiteSvs *mocks.MockWebsiteServicer
	orderSvs   *mocks.MockOrderServicer
	ledgerSvs  *mocks.MockLedgerServicer
	payoutSvs  *mocks.MockPayoutServicer
	keySvs     *mocks.MockAPIKeyServicer
}

func (s *handlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	mockCtrl := gomock.NewController(s.T())

	s.jwtSecret = []byte("super secret key")
	s.userSvs = mocks.NewMockUserServicer(mockCtrl)
	s.websiteSvs = mocks.NewMockWebsiteServicer(mockCtrl)
	s.orderSvs = mocks.NewMockOrderServicer(mockCtrl)
	s.ledgerSvs = mocks.NewMockLedgerServicer(mockCtrl)
	s.payoutSvs = mocks.NewMockPayoutServicer(mockCtrl)
	s.keySvs = mocks.NewMockAPIKeyServicer(mockCtrl)

	router, err := New(RouterArgs{
		Logger:         logger.New(io.Discard, "error"),
		UserService:    s.userSvs,
		WebsiteService: s.websiteSvs,
		OrderService:   s.orderSvs,
		LedgerService:  s.ledgerSvs,
		PayoutService:  s.payoutSvs,
		APIKeyService:  s.keySvs,
		JWTSecretKey:   s.jwtSecret,
		CronSecret:     testCronSecret,
	})
	s.Require().NoError(err)
	s.router = router
}

func (s *handlerSuite) token(userID int64, role domain.Role) string {
	token, err := tokens.GenerateUserJWT(userID, role, time.Hour, s.jwtSecret)
	s.Require().NoError(err)
	return token
}

type response struct {
	status  int
	header  http.Header
	body    []byte
	errBody struct {
		Error  string            `json:"error"`
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
}

// decode разбирает тело успешного ответа.
func (r *response) decode(s *handlerSuite, dst any) {
	s.Require().NoError(json.Unmarshal(r.body, dst), string(r.body))
}

// request выполняет запрос. payload кодируется в JSON, кроме []byte, которые передаются как есть.
func (s *handlerSuite) request(method, url string, payload any, bearer string) *response {
	opts := []testutils.RequestOption{testutils.WithBearer(bearer)}
	if payload != nil {
		opts = append(opts, testutils.WithJSON(payload))
	} else {
		opts = append(opts, testutils.WithHeader("Content-Type", "application/json"))
	}
	res, err := testutils.Serve(s.router, method, url, opts...)
	s.Require().NoError(err)
	defer func() {
		closeErr := res.Body.Close()
		s.Require().NoError(closeErr)
	}()

	raw, err := io.ReadAll(res.Body)
	s.Require().NoError(err)

	r := &response{status: res.StatusCode, header: res.Header, body: raw}
	if res.StatusCode >= http.StatusBadRequest {
		s.Require().NoError(json.Unmarshal(raw, &r.errBody), string(raw))
	}
	return r
}
