package repoargs

import (
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
)

type CreateOrder struct {
	OrderNumber       string
	BuyerID           int64
	PublisherID       int64
	WebsiteID         int64
	AffiliateID       *int64
	OrderType         domain.OrderType
	ContentSource     domain.ContentSource
	TargetURL         string
	AnchorText        string
	ArticleTitle      string
	ArticleBody       string
	BuyerNotes        string
	BasePrice         int64
	UrgentFee         int64
	Subtotal          int64
	PlatformFee       int64
	AffiliateFee      int64
	TotalAmount       int64
	PublisherEarnings int64
	TurnaroundDays    int
	IsUrgent          bool
	DeadlineAt        time.Time
}

// OrderScope чьи заказы выбираются.
type OrderScope string

const (
	ScopeBuyer     OrderScope = "buyer"
	ScopePublisher OrderScope = "publisher"
	ScopeAll       OrderScope = "all"
)

type OrderFilter struct {
	Scope  OrderScope
	UserID int64
	Status *domain.OrderStatusType
	Page   domain.Page
}
