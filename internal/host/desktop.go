package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tvo/signaldesk/internal/model"
)

// queryTimeout bounds the device status round-trip so a hung session
// bus cannot stall the alert engine.
const queryTimeout = 3 * time.Second

// Desktop is the production host bridge for Linux desktops. Device
// status comes from loginctl, notifications go out via notify-send,
// and lock mirroring is published through a state file that secondary
// windows of the process family watch.
type Desktop struct {
	permission Permission

	// stateDir holds the mirrored lock state file.
	stateDir string
}

// NewDesktop creates a Desktop bridge. Mirrored state is written under
// stateDir (typically the config directory).
func NewDesktop(stateDir string) *Desktop {
	return &Desktop{
		permission: PermissionDefault,
		stateDir:   stateDir,
	}
}

// QueryDeviceStatus asks logind whether the active session is locked.
// Any failure reports DeviceActive: the engine fails open to the
// non-intrusive path rather than locking the user out on a bad query.
func (d *Desktop) QueryDeviceStatus(ctx context.Context) (model.DeviceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx,
		"loginctl", "show-session", "auto", "--property=LockedHint", "--property=IdleHint",
	).Output()
	if err != nil {
		return model.DeviceActive, fmt.Errorf("querying loginctl: %w", err)
	}

	locked := strings.Contains(string(out), "LockedHint=yes")
	idle := strings.Contains(string(out), "IdleHint=yes")
	switch {
	case locked:
		return model.DeviceLocked, nil
	case idle:
		return model.DeviceSleep, nil
	default:
		return model.DeviceActive, nil
	}
}

// SetPersistentAlertActive publishes the lock flag for secondary windows.
func (d *Desktop) SetPersistentAlertActive(active bool) {
	d.writeStateFile("persistent-alert", active)
}

// SetAlwaysOnTop publishes the pin flag for the window manager shim.
func (d *Desktop) SetAlwaysOnTop(pinned bool) {
	d.writeStateFile("always-on-top", pinned)
}

// RestoreWindow asks the compositor to focus the application window.
// Best effort: without a compatible window manager this is a no-op.
func (d *Desktop) RestoreWindow() {
	if err := exec.Command("wmctrl", "-a", "signaldesk").Run(); err != nil {
		slog.Debug("restore window request failed", "error", err)
	}
}

// Permission returns the current notification permission.
func (d *Desktop) Permission() Permission {
	return d.permission
}

// RequestPermission checks once for a usable notification transport.
// notify-send present means granted; absent means denied.
func (d *Desktop) RequestPermission() Permission {
	if d.permission != PermissionDefault {
		return d.permission
	}
	if _, err := exec.LookPath("notify-send"); err != nil {
		d.permission = PermissionDenied
	} else {
		d.permission = PermissionGranted
	}
	return d.permission
}

// Notify emits an OS notification via notify-send. Without granted
// permission this is a silent no-op.
func (d *Desktop) Notify(n Notification) error {
	if d.permission != PermissionGranted {
		return nil
	}
	err := exec.Command("notify-send", "--app-name=signaldesk", n.Title, n.Body).Run()
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	return nil
}

// writeStateFile persists a boolean flag under the state directory.
// Writing the same value twice is harmless.
func (d *Desktop) writeStateFile(name string, value bool) {
	if d.stateDir == "" {
		return
	}
	path := filepath.Join(d.stateDir, name)
	content := "0"
	if value {
		content = "1"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		slog.Warn("writing host state file", "file", name, "error", err)
	}
}
