package domain

type NotificationKind string

const (
	NotifyOrderPlaced     NotificationKind = "order_placed"
	NotifyOrderReceived   NotificationKind = "order_received"
	NotifyOrderAccepted   NotificationKind = "order_accepted"
	NotifyOrderPublished  NotificationKind = "order_published"
	NotifyOrderCompleted  NotificationKind = "order_completed"
	NotifyRevisionNeeded  NotificationKind = "revision_needed"
	NotifyOrderCancelled  NotificationKind = "order_cancelled"
	NotifyOrderRefunded   NotificationKind = "order_refunded"
	NotifyDisputeOpened   NotificationKind = "dispute_opened"
	NotifyPayoutRequested NotificationKind = "payout_requested"
	NotifyPayoutPaid      NotificationKind = "payout_paid"
	NotifyPayoutRejected  NotificationKind = "payout_rejected"
)

// Notification письмо пользователю. Адрес получателя определяется по UserID при отправке.
type Notification struct {
	Kind   NotificationKind
	UserID int64
	Data   map[string]string
}
