package mailer

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/transport/mailer/client"
)

// Sender отправляет письмо провайдеру и возвращает его идентификатор.
type Sender interface {
	Send(ctx context.Context, email client.Email) (string, error)
}

// UserGetter ищет получателя письма.
type UserGetter interface {
	Get(ctx context.Context, userID int64) (*domain.User, error)
}
