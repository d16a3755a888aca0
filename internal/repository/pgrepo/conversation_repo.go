package pgrepo

import (
	"context"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/fsdevblog/guestmart/internal/repository/repoargs"
	"github.com/fsdevblog/guestmart/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, created_at, conversation_id, sender_id, body, is_system, is_read`

type ConversationRepository struct {
	conn uow.DBTX
}

func NewConversationRepository(conn uow.DBTX) *ConversationRepository {
	return &ConversationRepository{conn: conn}
}

// EnsureForOrder возвращает переписку по заказу, создавая ее при первом обращении.
func (c *ConversationRepository) EnsureForOrder(ctx context.Context, order *domain.Order) (*domain.Conversation, error) {
	if _, err := c.conn.Exec(ctx, `
		INSERT INTO conversations (order_id, buyer_id, publisher_id) VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO NOTHING`, order.ID, order.BuyerID, order.PublisherID); err != nil {
		return nil, convertErr(err, "creating conversation for order %d", order.ID)
	}

	var conv domain.Conversation
	err := c.conn.QueryRow(ctx, `
		SELECT id, created_at, order_id, buyer_id, publisher_id FROM conversations WHERE order_id = $1`, order.ID).
		Scan(&conv.ID, &conv.CreatedAt, &conv.OrderID, &conv.BuyerID, &conv.PublisherID)
	if err != nil {
		return nil, convertErr(err, "finding conversation for order %d", order.ID)
	}
	return &conv, nil
}

func (c *ConversationRepository) AddMessage(ctx context.Context, args repoargs.CreateMessage) (*domain.Message, error) {
	msg, err := scanMessage(c.conn.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender_id, body, is_system) VALUES ($1, $2, $3, $4)
		RETURNING `+messageColumns, args.ConversationID, args.SenderID, args.Body, args.IsSystem))
	if err != nil {
		return nil, convertErr(err, "adding message to conversation %d", args.ConversationID)
	}
	return msg, nil
}

// ListMessages сообщения переписки в хронологическом порядке. Сообщения, адресованные
// readerID, помечаются прочитанными.
func (c *ConversationRepository) ListMessages(
	ctx context.Context,
	conversationID int64,
	readerID int64,
) ([]domain.Message, error) {
	if _, err := c.conn.Exec(ctx, `
		UPDATE messages SET is_read = true
		WHERE conversation_id = $1 AND NOT is_read AND sender_id IS DISTINCT FROM $2`,
		conversationID, readerID); err != nil {
		return nil, convertErr(err, "marking messages of conversation %d as read", conversationID)
	}

	rows, err := c.conn.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY id`, conversationID)
	if err != nil {
		return nil, convertErr(err, "listing messages of conversation %d", conversationID)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Message, error) {
		msg, scanErr := scanMessage(row)
		if scanErr != nil {
			return domain.Message{}, scanErr
		}
		return *msg, nil
	})
	if err != nil {
		return nil, convertErr(err, "scanning messages of conversation %d", conversationID)
	}
	return list, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.ConversationID, &m.SenderID, &m.Body, &m.IsSystem, &m.IsRead); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &m, nil
}
