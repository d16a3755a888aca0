package service

import (
	"errors"
	"testing"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service/mocks"
	"github.com/fsdevblog/guestmart/internal/service/tokens"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

var testJWTSecret = []byte("test-secret")

type UserServiceTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	hasher *mocks.MockPasswordHasher
	store  *memStore
	srv    *UserService
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.hasher = mocks.NewMockPasswordHasher(s.ctrl)
	s.store = newMemStore()

	srv, err := NewUserService(&memUOW{s: s.store}, testJWTSecret, s.hasher)
	s.Require().NoError(err)
	s.srv = srv
}

func (s *UserServiceTestSuite) TestRegister() {
	s.hasher.EXPECT().HashPassword("secret").Return("hashed", nil)

	user, token, err := s.srv.Register(s.T().Context(), RegisterUserArgs{
		Email:    " Pub@Example.com ",
		Password: "secret",
		Name:     "Pub",
		Role:     domain.RolePublisher,
	})
	s.Require().NoError(err)
	s.Equal("pub@example.com", user.Email)
	s.Equal("hashed", user.EncryptedPassword)
	s.Regexp(`^[0-9A-F]{8}$`, user.ReferralCode)
	s.Nil(user.ReferredBy)

	claims, err := tokens.ValidateUserJWT(token, testJWTSecret)
	s.Require().NoError(err)
	s.Equal(user.ID, claims.ID)
	s.Equal(domain.RolePublisher, claims.Role)
}

func (s *UserServiceTestSuite) TestRegisterWithReferral() {
	aff := s.store.addUser(domain.RoleAffiliate, domain.Balances{})
	s.hasher.EXPECT().HashPassword(gomock.Any()).Return("hashed", nil)

	user, _, err := s.srv.Register(s.T().Context(), RegisterUserArgs{
		Email:        "buyer@example.com",
		Password:     "secret",
		ReferralCode: " " + aff.ReferralCode + " ",
	})
	s.Require().NoError(err)
	s.Equal(domain.RoleBuyer, user.Role)
	s.Equal(&aff.ID, user.ReferredBy)
}

func (s *UserServiceTestSuite) TestRegisterErrors() {
	tests := []struct {
		name    string
		setup   func()
		args    RegisterUserArgs
		wantErr error
	}{
		{
			name:    "admin_role",
			setup:   func() {},
			args:    RegisterUserArgs{Email: "a@example.com", Password: "x", Role: domain.RoleAdmin},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown_referral",
			setup:   func() {},
			args:    RegisterUserArgs{Email: "a@example.com", Password: "x", ReferralCode: "NOPE0000"},
			wantErr: domain.ErrValidation,
		},
		{
			name: "duplicate_email",
			setup: func() {
				s.store.addUser(domain.RoleBuyer, domain.Balances{})
				s.hasher.EXPECT().HashPassword(gomock.Any()).Return("hashed", nil)
			},
			// addUser выдает адреса вида user<ID>@example.com, первый пользователь получает ID 1.
			args:    RegisterUserArgs{Email: "user1@example.com", Password: "x"},
			wantErr: domain.ErrDuplicateKey,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.setup()
			_, _, err := s.srv.Register(s.T().Context(), tt.args)
			s.Require().ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *UserServiceTestSuite) TestRegisterHashError() {
	s.hasher.EXPECT().HashPassword(gomock.Any()).Return("", errors.New("too long"))

	_, _, err := s.srv.Register(s.T().Context(), RegisterUserArgs{Email: "a@example.com", Password: "x"})
	s.Require().Error(err)
	s.Zero(len(s.store.users))
}

func (s *UserServiceTestSuite) TestLogin() {
	s.hasher.EXPECT().HashPassword("secret").Return("hashed", nil)
	registered, _, err := s.srv.Register(s.T().Context(), RegisterUserArgs{Email: "b@example.com", Password: "secret"})
	s.Require().NoError(err)

	s.Run("ok", func() {
		s.hasher.EXPECT().ComparePassword("secret", "hashed").Return(true)
		user, token, loginErr := s.srv.Login(s.T().Context(), LoginUserArgs{Email: "b@example.com", Password: "secret"})
		s.Require().NoError(loginErr)
		s.Equal(registered.ID, user.ID)
		s.NotEmpty(token)
	})
	s.Run("wrong_password", func() {
		s.hasher.EXPECT().ComparePassword("bad", "hashed").Return(false)
		_, _, loginErr := s.srv.Login(s.T().Context(), LoginUserArgs{Email: "b@example.com", Password: "bad"})
		s.Require().ErrorIs(loginErr, domain.ErrPasswordMissMatch)
	})
	s.Run("unknown_email", func() {
		_, _, loginErr := s.srv.Login(s.T().Context(), LoginUserArgs{Email: "nobody@example.com", Password: "x"})
		s.Require().ErrorIs(loginErr, domain.ErrRecordNotFound)
	})
}
