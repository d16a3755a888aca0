package domain

import (
	"time"
)

type User struct {
	ID                int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Email             string
	Name              string
	EncryptedPassword string
	Role              Role
	ReferralCode      string
	ReferredBy        *int64
	Balances
}

// Balances текущие значения балансов пользователя в центах.
type Balances struct {
	Buyer     int64 `json:"buyer"`
	Publisher int64 `json:"publisher"`
	Affiliate int64 `json:"affiliate"`
}

// Get возвращает значение баланса указанного типа.
func (b Balances) Get(t BalanceType) int64 {
	switch t {
	case BalanceBuyer:
		return b.Buyer
	case BalancePublisher:
		return b.Publisher
	case BalanceAffiliate:
		return b.Affiliate
	}
	return 0
}

type Website struct {
	ID                 int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	OwnerID            int64
	Domain             string
	Name               string
	Description        string
	PriceGuestPost     int64
	PriceLinkInsertion int64
	PriceUrgent        int64
	OffersUrgent       bool
	TurnaroundDays     int
	IsActive           bool
	VerificationStatus VerificationStatus
	DomainAuthority    int
	DomainRating       int
	OrganicTraffic     int64
	AverageRating      float64
	RatingCount        int
}

// PriceFor возвращает базовую цену для типа заказа. 0 означает, что услуга не оказывается.
func (w *Website) PriceFor(t OrderType) int64 {
	switch t {
	case OrderTypeGuestPost:
		return w.PriceGuestPost
	case OrderTypeLinkInsertion:
		return w.PriceLinkInsertion
	}
	return 0
}

// Available сайт активен и прошел верификацию.
func (w *Website) Available() bool {
	return w.IsActive && w.VerificationStatus == VerificationApproved
}

type Order struct {
	ID            int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	OrderNumber   string
	BuyerID       int64
	PublisherID   int64
	WebsiteID     int64
	AffiliateID   *int64
	OrderType     OrderType
	ContentSource ContentSource
	TargetURL     string
	AnchorText    string
	ArticleTitle  string
	ArticleBody   string
	BuyerNotes    string
	ArticleURL    string

	BasePrice         int64
	UrgentFee         int64
	Subtotal          int64
	PlatformFee       int64
	AffiliateFee      int64
	TotalAmount       int64
	PublisherEarnings int64

	TurnaroundDays int
	IsUrgent       bool
	DeadlineAt     time.Time

	Status        OrderStatusType
	PaymentStatus PaymentStatusType

	PaidAt                 *time.Time
	AcceptedAt             *time.Time
	PublishedAt            *time.Time
	CompletedAt            *time.Time
	CancelledAt            *time.Time
	ReleasedAt             *time.Time
	ConfirmationDeadline   *time.Time
	DisputeProtectionUntil *time.Time
	BuyerConfirmedAt       *time.Time
	BuyerRejectedAt        *time.Time
	RejectionReason        string
	CancellationReason     string
	RevisionCount          int
	BuyerRating            *int
}

// IsParticipant true, если пользователь является покупателем или исполнителем заказа.
func (o *Order) IsParticipant(userID int64) bool {
	return o.BuyerID == userID || o.PublisherID == userID
}

type BalanceTransaction struct {
	ID              int64
	CreatedAt       time.Time
	UserID          int64
	BalanceType     BalanceType
	Type            TransactionType
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	OrderID         *int64
	PayoutRequestID *int64
	Description     string
}

type PayoutRequest struct {
	ID               int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	UserID           int64
	Amount           int64
	BalanceType      BalanceType
	Method           PayoutMethod
	DestinationEmail string
	Status           PayoutStatusType
	AdminNotes       string
	RejectionReason  string
	ProcessedBy      *int64
	ProcessedAt      *time.Time
}

type Conversation struct {
	ID          int64
	CreatedAt   time.Time
	OrderID     int64
	BuyerID     int64
	PublisherID int64
}

type Message struct {
	ID             int64
	CreatedAt      time.Time
	ConversationID int64
	SenderID       *int64
	Body           string
	IsSystem       bool
	IsRead         bool
}

type Dispute struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	OrderID     int64
	OpenedBy    int64
	Reason      string
	Description string
	Status      DisputeStatus
	Outcome     DisputeOutcome
	AdminNotes  string
	ResolvedBy  *int64
	ResolvedAt  *time.Time
}

type Review struct {
	ID        int64
	CreatedAt time.Time
	OrderID   int64
	WebsiteID int64
	BuyerID   int64
	Rating    int
	Comment   string
}

type APIKey struct {
	ID          int64
	CreatedAt   time.Time
	UserID      int64
	Name        string
	KeyPrefix   string
	KeyHash     string
	Permissions []APIPermission
	RateLimit   int
	IsActive    bool
	LastUsedAt  *time.Time
	ExpiresAt   *time.Time
}

// HasPermission проверяет наличие хотя бы одного из разрешений.
func (k *APIKey) HasPermission(perms ...APIPermission) bool {
	for _, have := range k.Permissions {
		for _, want := range perms {
			if have == want {
				return true
			}
		}
	}
	return false
}

// RateLimitState состояние счетчика запросов в текущем окне.
type RateLimitState struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Page параметры пагинации.
type Page struct {
	Page  int
	Limit int
}

// Offset смещение для SQL запроса.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
