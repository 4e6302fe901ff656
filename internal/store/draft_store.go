package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tvo/signaldesk/internal/model"
)

// SaveDraft inserts or replaces the in-progress response text for a signal.
func (s *SQLiteStore) SaveDraft(ctx context.Context, draft model.Draft) error {
	if draft.SignalID == "" {
		return fmt.Errorf("draft signal id must not be empty")
	}
	if draft.SavedAt.IsZero() {
		draft.SavedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO drafts (signal_id, text, saved_at)
		VALUES (?, ?, ?)`,
		draft.SignalID, draft.Text, draft.SavedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving draft for %s: %w", draft.SignalID, err)
	}
	return nil
}

// GetDraft returns the saved draft for a signal, or nil if none exists.
func (s *SQLiteStore) GetDraft(ctx context.Context, signalID string) (*model.Draft, error) {
	var draft model.Draft
	err := s.db.GetContext(ctx, &draft, `
		SELECT signal_id AS "signalid", text, saved_at AS "savedat"
		FROM drafts WHERE signal_id = ?`, signalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying draft for %s: %w", signalID, err)
	}
	return &draft, nil
}

// DeleteDraft removes the saved draft for a signal. Called immediately
// after a successful submission.
func (s *SQLiteStore) DeleteDraft(ctx context.Context, signalID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE signal_id = ?", signalID)
	if err != nil {
		return fmt.Errorf("deleting draft for %s: %w", signalID, err)
	}
	return nil
}
