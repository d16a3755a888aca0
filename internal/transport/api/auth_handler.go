package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService UserServicer
}

func NewAuthHandler(userService UserServicer) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

type UserRegisterParams struct {
	Email        string      `binding:"required,email,max=255"                           json:"email"`
	Password     string      `binding:"required,min=8,max_bytes=72"                      json:"password"`
	Name         string      `binding:"required,min=1,max=100"                           json:"name"`
	Role         domain.Role `binding:"omitempty,oneof=buyer publisher affiliate"        json:"role"`
	ReferralCode string      `binding:"omitempty,max=32"                                 json:"referral_code"`
}

type UserResponse struct {
	ID           int64           `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	Role         domain.Role     `json:"role"`
	ReferralCode string          `json:"referral_code"`
	Balances     domain.Balances `json:"balances"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		ReferralCode: u.ReferralCode,
		Balances:     u.Balances,
		CreatedAt:    u.CreatedAt,
	}
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Register POST RouteGroup + RegisterRoute. Регистрирует пользователя и аутентифицирует его.
func (h *AuthHandler) Register(c *gin.Context) {
	var params UserRegisterParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, jwtToken, createErr := h.userService.Register(ctx, service.RegisterUserArgs{
		Email:        params.Email,
		Password:     params.Password,
		Name:         strings.TrimSpace(params.Name),
		Role:         params.Role,
		ReferralCode: strings.TrimSpace(params.ReferralCode),
	})
	if createErr != nil {
		abortWithError(c, createErr)
		return
	}

	c.Header("Authorization", "Bearer "+jwtToken)
	c.JSON(http.StatusCreated, AuthResponse{Token: jwtToken, User: newUserResponse(user)})
}

type UserLoginParams struct {
	Email    string `binding:"required,email"       json:"email"`
	Password string `binding:"required,max_bytes=72" json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре email/пароль.
func (h *AuthHandler) Login(c *gin.Context) {
	var params UserLoginParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, token, err := h.userService.Login(ctx, service.LoginUserArgs{
		Email:    params.Email,
		Password: params.Password,
	})
	if err != nil {
		// неизвестный email и неверный пароль неразличимы для клиента.
		if domainErrIs(err, domain.ErrRecordNotFound, domain.ErrPasswordMissMatch) {
			abortWithError(c, domain.ErrUnauthorized)
			return
		}
		abortWithError(c, err)
		return
	}
	c.Header("Authorization", "Bearer "+token)

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: newUserResponse(user)})
}

// Me GET RouteGroup + MeRoute. Текущий пользователь и его балансы.
func (h *AuthHandler) Me(c *gin.Context) {
	actor := getActorFromContext(c)

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userService.Get(ctx, actor.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}
