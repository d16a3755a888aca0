package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, created_at, updated_at, email, name, encrypted_password, role, referral_code, referred_by,
	buyer_balance, publisher_balance, affiliate_balance`

type UserRepository struct {
	conn uow.DBTX
}

func NewUserRepository(conn uow.DBTX) *UserRepository {
	return &UserRepository{conn: conn}
}

// CreateUser создает юзера в базе данных. В случае конфликта email или реферального кода возвращает ошибку
// domain.ErrDuplicateKey, во всех других случаях - domain.ErrUnknown.
func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	row := u.conn.QueryRow(ctx, `
		INSERT INTO users (email, name, encrypted_password, role, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		args.Email, args.Name, args.Password, args.Role, args.ReferralCode, args.ReferredBy,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user")
	}
	return user, nil
}

// FindByEmail ищет юзера по email. Возвращает ошибку domain.ErrRecordNotFound если запись не найдена.
func (u *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, convertErr(err, "finding user by email %s", email)
	}
	return user, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding user by id %d", id)
	}
	return user, nil
}

func (u *UserRepository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	user, err := scanUser(u.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1`, code))
	if err != nil {
		return nil, convertErr(err, "finding user by referral code %s", code)
	}
	return user, nil
}

// AdjustBalance атомарно изменяет баланс на args.Delta одним условным UPDATE. Если итоговое значение
// оказалось бы отрицательным, строка не обновляется и возвращается domain.ErrInsufficientFunds.
// Отсутствующий пользователь - domain.ErrRecordNotFound.
func (u *UserRepository) AdjustBalance(
	ctx context.Context,
	args repoargs.AdjustBalance,
) (*repoargs.BalanceChange, error) {
	col, colErr := balanceColumn(args.BalanceType)
	if colErr != nil {
		return nil, colErr
	}

	query := fmt.Sprintf(`
		UPDATE users SET %[1]s = %[1]s + $1, updated_at = now()
		WHERE id = $2 AND %[1]s + $1 >= 0
		RETURNING %[1]s`, col)

	var after int64
	err := u.conn.QueryRow(ctx, query, args.Delta, args.UserID).Scan(&after)
	if err == nil {
		return &repoargs.BalanceChange{Before: after - args.Delta, After: after}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, convertErr(err, "adjusting %s balance of user %d", args.BalanceType, args.UserID)
	}

	// строка не обновилась: либо нет пользователя, либо не хватает средств.
	var exists bool
	if existsErr := u.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, args.UserID).
		Scan(&exists); existsErr != nil {
		return nil, convertErr(existsErr, "checking user %d existence", args.UserID)
	}
	if !exists {
		return nil, fmt.Errorf("[repository/adjusting balance of user %d] %w", args.UserID, domain.ErrRecordNotFound)
	}
	return nil, fmt.Errorf(
		"[repository/adjusting %s balance of user %d by %d] %w",
		args.BalanceType, args.UserID, args.Delta, domain.ErrInsufficientFunds,
	)
}

func balanceColumn(t domain.BalanceType) (string, error) {
	switch t {
	case domain.BalanceBuyer:
		return "buyer_balance", nil
	case domain.BalancePublisher:
		return "publisher_balance", nil
	case domain.BalanceAffiliate:
		return "affiliate_balance", nil
	}
	return "", domain.NewValidationError("balance_type", fmt.Sprintf("unknown balance type %q", t))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Email, &user.Name, &user.EncryptedPassword,
		&user.Role, &user.ReferralCode, &user.ReferredBy,
		&user.Buyer, &user.Publisher, &user.Affiliate,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &user, nil
}
