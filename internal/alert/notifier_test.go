package alert_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tvo/signaldesk/internal/alert"
	"github.com/tvo/signaldesk/internal/host"
	"github.com/tvo/signaldesk/internal/model"
	"github.com/tvo/signaldesk/tests/testutil"
)

func newTestSignal(id string, deadline time.Time) model.Signal {
	return model.Signal{
		ID:              id,
		Question:        "Ship the release?",
		PublisherName:   "release-bot",
		Deadline:        deadline,
		DefaultResponse: "no objection",
		CreatedAt:       deadline.Add(-2 * time.Hour),
		UpdatedAt:       deadline.Add(-2 * time.Hour),
	}
}

// countKind tallies emitted notifications of one kind on the fake host.
func countKind(t *testing.T, bridge *host.Fake, wantSubstring string) int {
	t.Helper()
	count := 0
	for _, n := range bridge.Notifications() {
		if strings.Contains(n.Body, wantSubstring) {
			count++
		}
	}
	return count
}

func TestThresholdFiresOncePerDeadline(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", now.Add(60*time.Minute))

	// First sight fires the new-signal one-shot plus the 60-minute mark.
	notifier.EvaluateSignal(ctx, now, sig)
	if got := countKind(t, bridge, "60 minutes left"); got != 1 {
		t.Fatalf("expected one 60-minute reminder, got %d", got)
	}

	// Re-evaluating within the same minute must not re-fire.
	for i := 0; i < 5; i++ {
		notifier.EvaluateSignal(ctx, now.Add(time.Duration(i)*time.Second), sig)
	}
	if got := countKind(t, bridge, "60 minutes left"); got != 1 {
		t.Errorf("expected reminder to stay deduped, got %d", got)
	}
}

func TestAllThresholdsFireAcrossCountdown(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", deadline)

	// Walk the clock from 61 minutes out to the deadline, one second
	// per tick, like the scanner does.
	for now := deadline.Add(-61 * time.Minute); now.Before(deadline); now = now.Add(time.Second) {
		notifier.EvaluateSignal(ctx, now, sig)
	}

	for _, want := range []string{"60 minutes left", "30 minutes left", "15 minutes left", "Final minute"} {
		if got := countKind(t, bridge, want); got != 1 {
			t.Errorf("expected exactly one %q reminder, got %d", want, got)
		}
	}
}

func TestFinalMinuteWindowIsInclusive(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	deadline := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", deadline)

	// A tick landing at 40 seconds out (minutes == 0) still matches
	// the 1-minute window.
	notifier.EvaluateSignal(ctx, deadline.Add(-40*time.Second), sig)
	if got := countKind(t, bridge, "Final minute"); got != 1 {
		t.Errorf("expected the [0,1] window to match at 40s out, got %d reminders", got)
	}
}

func TestDeadlineChangeResetsThresholds(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", now.Add(30*time.Minute))
	notifier.EvaluateSignal(ctx, now, sig)
	if got := countKind(t, bridge, "30 minutes left"); got != 1 {
		t.Fatalf("expected initial 30-minute reminder, got %d", got)
	}

	// Publisher extends the deadline; thresholds fired under the old
	// deadline must not suppress re-firing under the new one.
	sig.Deadline = now.Add(2 * time.Hour)
	sig.UpdatedAt = now
	later := now.Add(90 * time.Minute)
	notifier.EvaluateSignal(ctx, later, sig)
	if got := countKind(t, bridge, "30 minutes left"); got != 2 {
		t.Errorf("expected 30-minute reminder to re-fire after deadline change, got %d", got)
	}
}

func TestNoRemindersForExpiredOrAnswered(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expired := newTestSignal("expired", now.Add(-time.Minute))
	notifier.EvaluateSignal(ctx, now, expired)

	answered := newTestSignal("answered", now.Add(15*time.Minute))
	answered.Answered = true
	notifier.EvaluateSignal(ctx, now, answered)

	if got := len(bridge.Notifications()); got != 0 {
		t.Errorf("expected no notifications for expired/answered signals, got %d", got)
	}
}

func TestNewAndUpdatedOneShots(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", now.Add(3*time.Hour))

	// First sight: one "new" notification, no "updated".
	notifier.EvaluateSignal(ctx, now, sig)
	notifier.EvaluateSignal(ctx, now.Add(time.Second), sig)
	if got := countKind(t, bridge, "New signal"); got != 1 {
		t.Fatalf("expected one new-signal notification, got %d", got)
	}
	if got := countKind(t, bridge, "updated"); got != 0 {
		t.Fatalf("expected no updated notification at first sight, got %d", got)
	}

	// Edit: one "updated" per revision, deduped across ticks.
	sig.UpdatedAt = sig.UpdatedAt.Add(time.Minute)
	notifier.EvaluateSignal(ctx, now.Add(2*time.Second), sig)
	notifier.EvaluateSignal(ctx, now.Add(3*time.Second), sig)
	if got := countKind(t, bridge, "updated"); got != 1 {
		t.Errorf("expected one updated notification per revision, got %d", got)
	}

	// Second edit fires again.
	sig.UpdatedAt = sig.UpdatedAt.Add(time.Minute)
	notifier.EvaluateSignal(ctx, now.Add(4*time.Second), sig)
	if got := countKind(t, bridge, "updated"); got != 2 {
		t.Errorf("expected a second updated notification, got %d", got)
	}
}

func TestOneShotDedupSurvivesRestart(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", now.Add(3*time.Hour))

	first := alert.NewNotifier(s, host.NewFake(), alert.SystemClock(), true, nil)
	first.EvaluateSignal(ctx, now, sig)

	// A fresh notifier over the same store models a process restart.
	bridge := host.NewFake()
	second := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	second.EvaluateSignal(ctx, now.Add(time.Second), sig)

	if got := countKind(t, bridge, "New signal"); got != 0 {
		t.Errorf("expected new-signal dedup to survive restart, got %d notifications", got)
	}
}

func TestDeniedPermissionStillAdvancesDedup(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	bridge.Perm = host.PermissionDenied
	notifier := alert.NewNotifier(s, bridge, alert.SystemClock(), true, nil)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := newTestSignal("sig-1", now.Add(60*time.Minute))

	// Fire repeatedly: nothing reaches the OS and nothing retries.
	for i := 0; i < 3; i++ {
		notifier.EvaluateSignal(ctx, now.Add(time.Duration(i)*time.Second), sig)
	}
	if got := len(bridge.Notifications()); got != 0 {
		t.Fatalf("expected silence with denied permission, got %d notifications", got)
	}

	// History still records the emission attempts exactly once each
	// (new-signal plus the 60-minute threshold).
	unread, err := s.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("querying history: %v", err)
	}
	if len(unread) != 2 {
		t.Errorf("expected 2 history rows despite denied permission, got %d", len(unread))
	}
}

func TestNotificationTimestampsTrackClock(t *testing.T) {
	s := testutil.NewTestStore(t)
	bridge := host.NewFake()
	clock := alert.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	notifier := alert.NewNotifier(s, bridge, clock, true, nil)
	ctx := context.Background()

	sig := newTestSignal("sig-1", clock.Now().Add(3*time.Hour))
	notifier.EvaluateSignal(ctx, clock.Now(), sig)

	unread, err := s.GetUnreadNotifications(ctx)
	if err != nil {
		t.Fatalf("querying history: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected one history row, got %d", len(unread))
	}
	if !unread[0].CreatedAt.Equal(clock.Now().UTC()) {
		t.Errorf("expected history timestamp from the engine clock, got %v", unread[0].CreatedAt)
	}
}
