package repoargs

import "github.com/fsdevblog/guestmart/internal/domain"

type BalanceTransactionCreate struct {
	UserID          int64
	BalanceType     domain.BalanceType
	Type            domain.TransactionType
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	OrderID         *int64
	PayoutRequestID *int64
	Description     string
}

type BalanceTransactionFilter struct {
	UserID      int64
	BalanceType *domain.BalanceType
	Page        domain.Page
}
