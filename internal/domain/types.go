package domain

type Role string

const (
	RoleBuyer     Role = "buyer"
	RolePublisher Role = "publisher"
	RoleAffiliate Role = "affiliate"
	RoleAdmin     Role = "admin"
	// RoleSystem фоновые задачи. Не назначается пользователям.
	RoleSystem Role = "system"
)

type OrderType string

const (
	OrderTypeGuestPost     OrderType = "guest_post"
	OrderTypeLinkInsertion OrderType = "link_insertion"
)

type ContentSource string

const (
	ContentBuyerProvided   ContentSource = "buyer_provided"
	ContentPublisherWrites ContentSource = "publisher_writes"
)

type OrderStatusType string

const (
	OrderStatusPending          OrderStatusType = "pending"
	OrderStatusAccepted         OrderStatusType = "accepted"
	OrderStatusWriting          OrderStatusType = "writing"
	OrderStatusContentSubmitted OrderStatusType = "content_submitted"
	OrderStatusRevisionNeeded   OrderStatusType = "revision_needed"
	OrderStatusApproved         OrderStatusType = "approved"
	OrderStatusPublished        OrderStatusType = "published"
	OrderStatusCompleted        OrderStatusType = "completed"
	OrderStatusCancelled        OrderStatusType = "cancelled"
	OrderStatusRefunded         OrderStatusType = "refunded"
	OrderStatusDisputed         OrderStatusType = "disputed"
)

type PaymentStatusType string

const (
	PaymentStatusPending  PaymentStatusType = "pending"
	PaymentStatusPaid     PaymentStatusType = "paid"
	PaymentStatusReleased PaymentStatusType = "released"
	PaymentStatusRefunded PaymentStatusType = "refunded"
)

// BalanceType один из трёх независимых балансов пользователя.
type BalanceType string

const (
	BalanceBuyer     BalanceType = "buyer"
	BalancePublisher BalanceType = "publisher"
	BalanceAffiliate BalanceType = "affiliate"
)

func (b BalanceType) Valid() bool {
	switch b {
	case BalanceBuyer, BalancePublisher, BalanceAffiliate:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionEarning    TransactionType = "earning"
	TransactionCommission TransactionType = "commission"
	TransactionRefund     TransactionType = "refund"
	TransactionPayout     TransactionType = "payout"
	TransactionTransfer   TransactionType = "transfer"
	TransactionAdjustment TransactionType = "adjustment"
)

type PayoutMethod string

const (
	PayoutPayPal         PayoutMethod = "paypal"
	PayoutPayoneer       PayoutMethod = "payoneer"
	PayoutWalletTransfer PayoutMethod = "wallet_transfer"
)

// IsExternal true для методов, требующих ручной обработки администратором.
func (m PayoutMethod) IsExternal() bool {
	return m == PayoutPayPal || m == PayoutPayoneer
}

type PayoutStatusType string

const (
	PayoutStatusPending    PayoutStatusType = "pending"
	PayoutStatusProcessing PayoutStatusType = "processing"
	PayoutStatusCompleted  PayoutStatusType = "completed"
	PayoutStatusRejected   PayoutStatusType = "rejected"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
)

// DisputeOutcome решение администратора по спору.
type DisputeOutcome string

const (
	DisputeRelease DisputeOutcome = "release"
	DisputeRefund  DisputeOutcome = "refund"
)

type APIPermission string

const (
	PermissionRead   APIPermission = "read"
	PermissionWrite  APIPermission = "write"
	PermissionOrders APIPermission = "orders"
)

// Actor пользователь, от имени которого выполняется операция. Заменяет неявную сессию.
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SystemActor используется фоновыми задачами (авто-подтверждение заказов).
var SystemActor = Actor{Role: RoleSystem}
