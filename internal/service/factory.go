package service

import (
	"fmt"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/pkg/uow"
)

type AppServices struct {
	UserService    *UserService
	OrderService   *OrderService
	LedgerService  *LedgerService
	PayoutService  *PayoutService
	APIKeyService  *APIKeyService
	WebsiteService *WebsiteService
}

type FactoryArgs struct {
	JWTSecret []byte
	Policy    domain.PricingPolicy
	Hasher    PasswordHasher
	Notifier  Notifier
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, args.JWTSecret, args.Hasher)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	orderService, orderServiceErr := NewOrderService(unitOfWork, args.Policy, args.Notifier)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	ledgerService, ledgerServiceErr := NewLedgerService(unitOfWork)
	if ledgerServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerServiceErr.Error())
	}

	payoutService, payoutServiceErr := NewPayoutService(unitOfWork, args.Policy, args.Notifier)
	if payoutServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", payoutServiceErr.Error())
	}

	keyService, keyServiceErr := NewAPIKeyService(unitOfWork, args.Policy)
	if keyServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", keyServiceErr.Error())
	}

	websiteService, websiteServiceErr := NewWebsiteService(unitOfWork)
	if websiteServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", websiteServiceErr.Error())
	}

	return &AppServices{
		UserService:    userService,
		OrderService:   orderService,
		LedgerService:  ledgerService,
		PayoutService:  payoutService,
		APIKeyService:  keyService,
		WebsiteService: websiteService,
	}, nil
}
