package domain

import "time"

// NotificationKind classifies a user-facing message.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationInfo    NotificationKind = "info"
	NotificationError   NotificationKind = "error"
)

// Notification is a fire-and-forget message shown to the visitor.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}
