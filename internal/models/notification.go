package models

// NotificationKind - тип уведомления об изменении статуса.
type NotificationKind string

const (
	TenderPublishedNotification NotificationKind = "tender_published"
	TenderClosedNotification    NotificationKind = "tender_closed"
	TenderCancelledNotification NotificationKind = "tender_cancelled"
	BidAwardedNotification      NotificationKind = "bid_awarded"
	BidRejectedNotification     NotificationKind = "bid_rejected"
)

// Notification - сообщение для внешнего сервиса рассылки.
type Notification struct {
	Kind         NotificationKind
	TenderID     string
	TenderNumber string
	BidID        string
	VendorID     string
	Status       string
}
