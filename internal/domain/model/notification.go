package model

import "time"

type NotificationKind string

const (
	NotificationKindPayment      NotificationKind = "payment"
	NotificationKindSubscription NotificationKind = "subscription"
	NotificationKindAddon        NotificationKind = "addon"
)

// Notification is a fire-and-forget record shown to the user by the
// storefront. The core only writes them.
type Notification struct {
	ID        string // ULID, sortable by emit time
	UserID    string // UUID
	Kind      NotificationKind
	Title     string
	Body      string
	CreatedAt time.Time
	ReadAt    *time.Time
}
