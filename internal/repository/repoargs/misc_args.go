package repoargs

import (
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
)

type CreateMessage struct {
	ConversationID int64
	SenderID       *int64
	Body           string
	IsSystem       bool
}

type CreateDispute struct {
	OrderID     int64
	OpenedBy    int64
	Reason      string
	Description string
}

type CreateReview struct {
	OrderID   int64
	WebsiteID int64
	BuyerID   int64
	Rating    int
	Comment   string
}

type CreateAPIKey struct {
	UserID      int64
	Name        string
	KeyPrefix   string
	KeyHash     string
	Permissions []domain.APIPermission
	RateLimit   int
	ExpiresAt   *time.Time
}
