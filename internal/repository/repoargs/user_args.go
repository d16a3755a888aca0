package repoargs

import "github.com/fsdevblog/guestmart/internal/domain"

type CreateUser struct {
	Email        string
	Name         string
	Password     string
	Role         domain.Role
	ReferralCode string
	ReferredBy   *int64
}

// AdjustBalance изменение баланса на Delta (может быть отрицательным).
type AdjustBalance struct {
	UserID      int64
	BalanceType domain.BalanceType
	Delta       int64
}

// BalanceChange значения баланса до и после изменения.
type BalanceChange struct {
	Before int64
	After  int64
}
