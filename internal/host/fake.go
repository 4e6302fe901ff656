package host

import (
	"context"
	gosync "sync"

	"github.com/tvo/signaldesk/internal/model"
)

// Fake is an in-memory host bridge for tests. It records every call so
// tests can assert on mirroring and notification behavior.
type Fake struct {
	mu gosync.Mutex

	// Status is returned by QueryDeviceStatus. StatusErr, when set,
	// is returned alongside DeviceActive.
	Status    model.DeviceStatus
	StatusErr error

	// Perm is the notification permission state.
	Perm Permission

	// Recorded state and call history.
	PersistentAlertActive bool
	AlwaysOnTop           bool
	PersistentAlertCalls  []bool
	AlwaysOnTopCalls      []bool
	Restored              int
	Notified              []Notification
	StatusQueries         int
}

// NewFake returns a Fake reporting an active device and granted
// notification permission.
func NewFake() *Fake {
	return &Fake{
		Status: model.DeviceActive,
		Perm:   PermissionGranted,
	}
}

func (f *Fake) QueryDeviceStatus(ctx context.Context) (model.DeviceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusQueries++
	if f.StatusErr != nil {
		return model.DeviceActive, f.StatusErr
	}
	return f.Status, nil
}

func (f *Fake) SetPersistentAlertActive(active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PersistentAlertActive = active
	f.PersistentAlertCalls = append(f.PersistentAlertCalls, active)
}

func (f *Fake) SetAlwaysOnTop(pinned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AlwaysOnTop = pinned
	f.AlwaysOnTopCalls = append(f.AlwaysOnTopCalls, pinned)
}

func (f *Fake) RestoreWindow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restored++
}

func (f *Fake) Permission() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Perm
}

func (f *Fake) RequestPermission() Permission {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Perm == PermissionDefault {
		f.Perm = PermissionGranted
	}
	return f.Perm
}

func (f *Fake) Notify(n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Perm != PermissionGranted {
		return nil
	}
	f.Notified = append(f.Notified, n)
	return nil
}

// Notifications returns a copy of the notifications emitted so far.
func (f *Fake) Notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.Notified))
	copy(out, f.Notified)
	return out
}
