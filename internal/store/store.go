package store

import (
	"context"

	"github.com/tvo/signaldesk/internal/model"
)

// NotifiedKind namespaces the durable dedup sets.
type NotifiedKind string

const (
	// NotifiedNew dedups "new signal assigned" notifications, keyed by
	// signal id.
	NotifiedNew NotifiedKind = "new"

	// NotifiedUpdated dedups "signal updated" notifications, keyed by
	// signal id + revision marker.
	NotifiedUpdated NotifiedKind = "updated"
)

// Store defines the persistence interface for the local signal cache,
// response drafts, notification dedup keys, and notification history.
// All records survive process restart within the same user session.
type Store interface {
	// === Signal cache ===

	UpsertSignals(ctx context.Context, signals []model.Signal) error
	GetOutstandingSignals(ctx context.Context) ([]model.Signal, error)
	GetSignalByID(ctx context.Context, id string) (*model.Signal, error)
	MarkSignalAnswered(ctx context.Context, id string) error
	DeleteSignalsNotIn(ctx context.Context, ids []string) error

	// === Notification dedup keys ===

	HasNotified(ctx context.Context, kind NotifiedKind, key string) (bool, error)
	AddNotified(ctx context.Context, kind NotifiedKind, key string) error

	// === Drafts ===

	SaveDraft(ctx context.Context, draft model.Draft) error
	GetDraft(ctx context.Context, signalID string) (*model.Draft, error)
	DeleteDraft(ctx context.Context, signalID string) error

	// === Notification history ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
