package ports

import "context"

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "error"
)

// Notification is a user-facing outcome message ("toast").
type Notification struct {
	UserID  string           `json:"user_id,omitempty"`
	Kind    NotificationKind `json:"kind"`
	Message string           `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification)
}

// EventPublisher emits domain events to an external broker.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}
