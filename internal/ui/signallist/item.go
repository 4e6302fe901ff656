package signallist

import (
	"fmt"
	"strings"
	"time"

	"github.com/tvo/signaldesk/internal/model"
)

// SignalItem wraps a model.Signal so it can be used in a bubbles/list.
type SignalItem struct {
	Signal model.Signal

	// Now is the tick instant the list was last rendered against; the
	// countdown column is derived from it.
	Now time.Time
}

// FilterValue returns the string used for fuzzy filtering.
func (i SignalItem) FilterValue() string { return i.Signal.Question }

// Title returns the signal question for the list.
func (i SignalItem) Title() string {
	if i.Signal.IsPersistentFinalAlert {
		return "! " + i.Signal.Question
	}
	return i.Signal.Question
}

// Description returns a short summary line for the list.
func (i SignalItem) Description() string {
	parts := []string{
		i.Signal.PublisherName,
		countdown(i.Signal, i.Now),
	}
	return strings.Join(parts, " | ")
}

// countdown renders the remaining time compactly.
func countdown(sig model.Signal, now time.Time) string {
	if now.IsZero() {
		now = time.Now()
	}
	if sig.Expired(now) {
		return "expired"
	}

	remaining := sig.Deadline.Sub(now)
	switch {
	case remaining >= time.Hour:
		return fmt.Sprintf("due in %dh%02dm",
			int(remaining.Hours()), int(remaining.Minutes())%60)
	case remaining >= time.Minute:
		return fmt.Sprintf("due in %dm", int(remaining.Minutes()))
	default:
		return fmt.Sprintf("due in %ds", int(remaining.Seconds()))
	}
}
