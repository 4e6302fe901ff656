package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/internal/store"
)

// thresholds are the reminder marks, in minutes before the deadline.
var thresholds = []int{60, 30, 15, 1}

// Notifier emits deadline reminders and the one-shot new/updated signal
// notifications. Reminder dedup lives in the in-memory ProgressTracker;
// new/updated dedup is durable in the store.
type Notifier struct {
	store    store.Store
	notify   host.Notifier
	progress *ProgressTracker
	clock    Clock
	events   func(msg interface{})
	enabled  bool

	// Read-through caches over the durable dedup sets, so the 1 Hz
	// tick does not query the store per signal per second. Safe
	// because the sets are monotonic.
	seenNew map[string]bool
	seenRev map[string]bool
}

// NewNotifier creates a Notifier. events may be nil; when set it
// receives a ReminderFiredMsg per emission.
func NewNotifier(s store.Store, n host.Notifier, clock Clock, enabled bool, events func(msg interface{})) *Notifier {
	return &Notifier{
		store:    s,
		notify:   n,
		progress: NewProgressTracker(),
		clock:    clock,
		events:   events,
		enabled:  enabled,
		seenNew:  make(map[string]bool),
		seenRev:  make(map[string]bool),
	}
}

// hasNotified checks the cache, then the store, for a dedup key.
func (n *Notifier) hasNotified(ctx context.Context, kind store.NotifiedKind, key string, cache map[string]bool) (bool, error) {
	if cache[key] {
		return true, nil
	}
	seen, err := n.store.HasNotified(ctx, kind, key)
	if err != nil {
		return false, err
	}
	if seen {
		cache[key] = true
	}
	return seen, nil
}

// addNotified records a dedup key durably and in the cache.
func (n *Notifier) addNotified(ctx context.Context, kind store.NotifiedKind, key string, cache map[string]bool) {
	cache[key] = true
	if err := n.store.AddNotified(ctx, kind, key); err != nil {
		slog.Warn("recording dedup key", "kind", kind, "key", key, "error", err)
	}
}

// Progress exposes the reminder tracker so the scanner can prune
// records for signals that left the outstanding set.
func (n *Notifier) Progress() *ProgressTracker { return n.progress }

// EvaluateSignal runs every notification rule for one outstanding
// signal at the given instant. Answered and expired signals never fire.
func (n *Notifier) EvaluateSignal(ctx context.Context, now time.Time, sig model.Signal) {
	if sig.Answered || sig.Expired(now) {
		return
	}

	n.evaluateOneShots(ctx, sig)
	n.evaluateThresholds(ctx, now, sig)
}

// evaluateOneShots handles the "new signal assigned" and "signal
// updated" notifications. Both are pure dedup gates: once per signal
// id, and once per signal id + revision, respectively. The revision
// current at first sight is recorded up front so assignment does not
// also read as an update.
func (n *Notifier) evaluateOneShots(ctx context.Context, sig model.Signal) {
	seen, err := n.hasNotified(ctx, store.NotifiedNew, sig.ID, n.seenNew)
	if err != nil {
		slog.Warn("checking new-signal dedup", "signal", sig.ID, "error", err)
		return
	}

	if !seen {
		n.emit(ctx, model.Notification{
			SignalID: sig.ID,
			Kind:     model.NotificationNew,
			Message:  fmt.Sprintf("New signal from %s: %s", sig.PublisherName, sig.Question),
		})
		n.addNotified(ctx, store.NotifiedNew, sig.ID, n.seenNew)
		// The revision current at first sight is recorded so the
		// assignment does not also read as an update.
		n.addNotified(ctx, store.NotifiedUpdated, sig.RevisionKey(), n.seenRev)
		return
	}

	seenRev, err := n.hasNotified(ctx, store.NotifiedUpdated, sig.RevisionKey(), n.seenRev)
	if err != nil {
		slog.Warn("checking revision dedup", "signal", sig.ID, "error", err)
		return
	}
	if !seenRev {
		n.emit(ctx, model.Notification{
			SignalID: sig.ID,
			Kind:     model.NotificationUpdated,
			Message:  fmt.Sprintf("Signal updated by %s: %s", sig.PublisherName, sig.Question),
		})
		n.addNotified(ctx, store.NotifiedUpdated, sig.RevisionKey(), n.seenRev)
	}
}

// evaluateThresholds fires at most one reminder per (signal, threshold)
// for the signal's current deadline. The 1-minute mark matches the
// inclusive window [0,1] to tolerate tick jitter; the other marks
// require exact minute equality.
func (n *Notifier) evaluateThresholds(ctx context.Context, now time.Time, sig model.Signal) {
	minutes := sig.MinutesUntilDeadline(now)

	for _, threshold := range thresholds {
		matched := minutes == threshold
		if threshold == 1 {
			matched = minutes >= 0 && minutes <= 1
		}
		if !matched || n.progress.HasFired(sig, threshold) {
			continue
		}

		n.emit(ctx, model.Notification{
			SignalID: sig.ID,
			Kind:     model.NotificationThreshold,
			Message:  thresholdMessage(sig, threshold),
		})

		// Recorded even when emission was a silent no-op, so a denied
		// permission cannot turn into a retry storm.
		n.progress.MarkFired(sig, threshold)
	}
}

// emit sends one OS notification and appends it to the local history.
// Permission anything but granted degrades to a silent no-op, and
// dedup state still advances in the caller.
func (n *Notifier) emit(ctx context.Context, notification model.Notification) {
	notification.ID = uuid.New().String()
	notification.CreatedAt = n.clock.Now().UTC()

	if n.enabled && n.notify.Permission() == host.PermissionGranted {
		err := n.notify.Notify(host.Notification{
			Title:    "signaldesk",
			Body:     notification.Message,
			SignalID: notification.SignalID,
		})
		if err != nil {
			slog.Warn("emitting notification", "signal", notification.SignalID, "error", err)
		}
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		slog.Warn("recording notification history", "signal", notification.SignalID, "error", err)
	}

	if n.events != nil {
		n.events(ReminderFiredMsg{Notification: notification})
	}
}

// thresholdMessage renders the reminder text for a threshold.
func thresholdMessage(sig model.Signal, threshold int) string {
	if threshold == 1 {
		return fmt.Sprintf("Final minute: %q closes at %s",
			sig.Question, sig.Deadline.Local().Format("15:04"))
	}
	return fmt.Sprintf("%d minutes left to answer %q", threshold, sig.Question)
}
