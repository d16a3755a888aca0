package repoargs

import "github.com/fsdevblog/guestmart/internal/domain"

type CreatePayout struct {
	UserID           int64
	Amount           int64
	BalanceType      domain.BalanceType
	Method           domain.PayoutMethod
	DestinationEmail string
	Status           domain.PayoutStatusType
	ProcessedBy      *int64
}

type PayoutFilter struct {
	UserID *int64
	Status *domain.PayoutStatusType
	Page   domain.Page
}
