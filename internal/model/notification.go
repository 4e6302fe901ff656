package model

import "time"

// NotificationKind distinguishes why a notification fired.
type NotificationKind string

const (
	// NotificationNew fires once when a signal is first seen assigned
	// to the consumer.
	NotificationNew NotificationKind = "new"

	// NotificationUpdated fires once per edit revision of a signal.
	NotificationUpdated NotificationKind = "updated"

	// NotificationThreshold fires when a deadline reminder threshold
	// (60/30/15/1 minutes) is crossed.
	NotificationThreshold NotificationKind = "threshold"
)

// Notification is a local record of an alert surfaced to the user about
// a signal. Every OS notification emission also appends one of these to
// the store so the in-app feed survives a missed popup.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// SignalID links this notification to the originating signal.
	SignalID string `json:"signal_id"`

	// Kind identifies which rule generated this notification.
	Kind NotificationKind `json:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
