package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/internal/service/tokens"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

const JWTTokenExpire = 24 * time.Hour

type UserService struct {
	uow            uow.UOW
	userRepo       UserRepository
	jwtTokenSecret []byte
	passwordHasher PasswordHasher
}

func NewUserService(u uow.UOW, jwtTokenSecret []byte, hasher PasswordHasher) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr //nolint:wrapcheck
	}
	return &UserService{
		uow:            u,
		userRepo:       userRepo,
		jwtTokenSecret: jwtTokenSecret,
		passwordHasher: hasher,
	}, nil
}

type RegisterUserArgs struct {
	Email        string
	Password     string
	Name         string
	Role         domain.Role
	ReferralCode string
}

// Register создает юзера в базе данных. После успешного создания генерирует jwt token. Возвращает 3 значения:
// созданный юзер, токен и ошибку. Администраторы через регистрацию не создаются. Если передан
// реферальный код, покупатель привязывается к пригласившему партнеру.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	switch args.Role {
	case "":
		args.Role = domain.RoleBuyer
	case domain.RoleBuyer, domain.RolePublisher, domain.RoleAffiliate:
	default:
		return nil, "", domain.NewValidationError("role", "must be buyer, publisher or affiliate")
	}

	var referredBy *int64
	if code := strings.TrimSpace(args.ReferralCode); code != "" {
		referrer, refErr := s.userRepo.FindByReferralCode(ctx, strings.ToUpper(code))
		if refErr != nil {
			if errors.Is(refErr, domain.ErrRecordNotFound) {
				return nil, "", domain.NewValidationError("referral_code", "unknown referral code")
			}
			return nil, "", fmt.Errorf("registering user: %w", refErr)
		}
		referredBy = &referrer.ID
	}

	password, hashErr := s.passwordHasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}

	var user *domain.User
	var token string
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var userErr, tokenErr error
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Email:        strings.ToLower(strings.TrimSpace(args.Email)),
			Name:         args.Name,
			Password:     password,
			Role:         args.Role,
			ReferralCode: shortCode(),
			ReferredBy:   referredBy,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}

		token, tokenErr = tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
		if tokenErr != nil {
			return tokenErr //nolint:wrapcheck
		}
		return nil
	})

	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}
	return user, token, nil
}

type LoginUserArgs struct {
	Email    string
	Password string
}

// Login проверяет email и пароль и возвращает юзера с новым токеном. Неизвестный email -
// domain.ErrRecordNotFound, неверный пароль - domain.ErrPasswordMissMatch.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(args.Email))
	if err != nil {
		return nil, "", fmt.Errorf("login user: %w", err)
	}

	if !s.passwordHasher.ComparePassword(args.Password, user.EncryptedPassword) {
		return nil, "", fmt.Errorf("login user: %w", domain.ErrPasswordMissMatch)
	}

	token, tokenErr := tokens.GenerateUserJWT(user.ID, user.Role, JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login user: %w", tokenErr)
	}
	return user, token, nil
}

// Get профиль пользователя.
func (s *UserService) Get(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return user, nil
}
