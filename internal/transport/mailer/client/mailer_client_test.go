package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ClientTestSuite) TestSend() {
	type tcase struct {
		name           string
		subject        string
		httpStatus     int
		retryAfter     string
		wantID         string
		wantStatusErr  bool
		wantRetryAfter time.Duration
	}

	cases := []tcase{
		{name: "sent", subject: "ok", httpStatus: http.StatusOK, wantID: "mail-1"},
		{
			name:           "too many requests",
			subject:        "busy",
			httpStatus:     http.StatusTooManyRequests,
			retryAfter:     "3",
			wantRetryAfter: 3 * time.Second,
		}, {
			name:           "too many requests with broken header",
			subject:        "busy-broken",
			httpStatus:     http.StatusTooManyRequests,
			retryAfter:     "soon",
			wantRetryAfter: defaultRetryAfter * time.Second,
		},
		{name: "rejected", subject: "invalid", httpStatus: http.StatusUnprocessableEntity, wantStatusErr: true},
		{name: "provider down", subject: "down", httpStatus: http.StatusBadGateway, wantStatusErr: true},
	}

	// хендлер тестового сервера подбирает кейс по теме письма.
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(RouteSendEmail, r.URL.Path)
		s.Equal("Bearer test-key", r.Header.Get("Authorization"))

		var email Email
		s.NoError(json.NewDecoder(r.Body).Decode(&email))

		var rc *tcase
		for i := range cases {
			if cases[i].subject == email.Subject {
				rc = &cases[i]
				break
			}
		}
		if !s.NotNilf(rc, "тест для темы %s не найден", email.Subject) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		if rc.retryAfter != "" {
			w.Header().Set("Retry-After", rc.retryAfter)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rc.httpStatus)
		if rc.httpStatus == http.StatusOK {
			_, wErr := w.Write([]byte(`{"id":"` + rc.wantID + `"}`))
			s.NoError(wErr)
		}
	}))

	for _, t := range cases {
		s.Run(t.name, func() {
			c := New(s.server.URL, "test-key")
			id, err := c.Send(s.T().Context(), Email{
				From:    "noreply@example.com",
				To:      []string{"user@example.com"},
				Subject: t.subject,
				HTML:    "<p>hi</p>",
			})

			switch {
			case t.wantStatusErr:
				var statusErr *StatusCodeError
				s.Require().ErrorAs(err, &statusErr)
				s.Equal(t.httpStatus, statusErr.Code)
			case t.wantRetryAfter > 0:
				var tooMany *TooManyRequestError
				s.Require().ErrorAs(err, &tooMany)
				s.Equal(t.wantRetryAfter, tooMany.RetryAfter)
			default:
				s.Require().NoError(err)
				s.Equal(t.wantID, id)
			}
		})
	}
}

func (s *ClientTestSuite) TestParseRetryAfter() {
	s.Equal(2*time.Second, parseRetryAfter("1.5"))
	s.Equal(maxRetryAfter*time.Second, parseRetryAfter("120"))
	s.Equal(defaultRetryAfter*time.Second, parseRetryAfter("121"))
	s.Equal(defaultRetryAfter*time.Second, parseRetryAfter("0"))
	s.Equal(defaultRetryAfter*time.Second, parseRetryAfter(""))
}
