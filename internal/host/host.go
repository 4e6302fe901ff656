// Package host defines the contract between the alert engine and the
// process hosting the application window: device lock/sleep state,
// window pinning, lock mirroring for secondary windows, and OS
// notification delivery.
package host

import (
	"context"

	"github.com/tvo/signaldesk/internal/model"
)

// Permission is the host's notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notification is an OS-level notification request.
type Notification struct {
	Title string
	Body  string

	// SignalID routes a notification click to the signal detail view.
	SignalID string
}

// DeviceStatusOracle reports the host machine's lock/sleep state. The
// query is an asynchronous host round-trip: callers must re-check
// expiry and answered-state after it resolves, since the world can
// change during the await window.
type DeviceStatusOracle interface {
	QueryDeviceStatus(ctx context.Context) (model.DeviceStatus, error)
}

// WindowController mirrors lock state to the host process. All methods
// are idempotent: repeating the current state is harmless.
type WindowController interface {
	// SetPersistentAlertActive tells the host whether a persistent
	// alert lock is engaged, so secondary-monitor windows can render
	// a lock-out view instead of their normal content.
	SetPersistentAlertActive(active bool)

	// SetAlwaysOnTop pins or unpins the primary window.
	SetAlwaysOnTop(pinned bool)

	// RestoreWindow un-minimizes and focuses the primary window.
	// Requested when the user clicks a notification.
	RestoreWindow()
}

// Notifier delivers OS notifications. Permission is requested once at
// startup; emission with anything other than PermissionGranted must be
// a silent no-op.
type Notifier interface {
	Permission() Permission
	RequestPermission() Permission
	Notify(n Notification) error
}

// Bridge bundles the full host contract.
type Bridge interface {
	DeviceStatusOracle
	WindowController
	Notifier
}
