package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tvo/signaldesk/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// signalRow is the database representation of a model.Signal.
type signalRow struct {
	ID                     string    `db:"id"`
	Question               string    `db:"question"`
	PublisherName          string    `db:"publisher_name"`
	Deadline               time.Time `db:"deadline"`
	Consumers              string    `db:"consumers"`
	IsPersistentFinalAlert bool      `db:"is_persistent_final_alert"`
	DefaultResponse        string    `db:"default_response"`
	Answered               bool      `db:"answered"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (r signalRow) toModel() model.Signal {
	var consumers []string
	_ = json.Unmarshal([]byte(r.Consumers), &consumers)
	return model.Signal{
		ID:                     r.ID,
		Question:               r.Question,
		PublisherName:          r.PublisherName,
		Deadline:               r.Deadline,
		Consumers:              consumers,
		IsPersistentFinalAlert: r.IsPersistentFinalAlert,
		DefaultResponse:        r.DefaultResponse,
		Answered:               r.Answered,
		CreatedAt:              r.CreatedAt,
		UpdatedAt:              r.UpdatedAt,
	}
}

// UpsertSignals inserts or replaces a batch of signals fetched from the
// backend. An already-answered signal stays answered even if the fetch
// payload lags behind a local submission.
func (s *SQLiteStore) UpsertSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO signals (
			id, question, publisher_name, deadline, consumers,
			is_persistent_final_alert, default_response, answered,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			publisher_name = excluded.publisher_name,
			deadline = excluded.deadline,
			consumers = excluded.consumers,
			is_persistent_final_alert = excluded.is_persistent_final_alert,
			default_response = excluded.default_response,
			answered = MAX(signals.answered, excluded.answered),
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		consumers, err := json.Marshal(sig.Consumers)
		if err != nil {
			return fmt.Errorf("marshaling consumers for %s: %w", sig.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			sig.ID, sig.Question, sig.PublisherName,
			sig.Deadline.UTC(), string(consumers),
			sig.IsPersistentFinalAlert, sig.DefaultResponse, sig.Answered,
			sig.CreatedAt.UTC(), sig.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting signal %s: %w", sig.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	return nil
}

// GetOutstandingSignals returns unanswered signals ordered by deadline,
// soonest first. Expired signals are included; the alert engine decides
// what to do with them.
func (s *SQLiteStore) GetOutstandingSignals(ctx context.Context) ([]model.Signal, error) {
	var rows []signalRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM signals
		WHERE answered = 0
		ORDER BY deadline ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying outstanding signals: %w", err)
	}

	signals := make([]model.Signal, len(rows))
	for i, r := range rows {
		signals[i] = r.toModel()
	}
	return signals, nil
}

// GetSignalByID returns a single cached signal, or nil if not present.
func (s *SQLiteStore) GetSignalByID(ctx context.Context, id string) (*model.Signal, error) {
	var row signalRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM signals WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying signal %s: %w", id, err)
	}
	sig := row.toModel()
	return &sig, nil
}

// MarkSignalAnswered records that the consumer has responded, removing
// the signal from the outstanding set.
func (s *SQLiteStore) MarkSignalAnswered(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE signals SET answered = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking signal %s answered: %w", id, err)
	}
	return nil
}

// DeleteSignalsNotIn removes cached signals absent from the latest
// backend fetch (deleted or reassigned server-side). Their dedup keys
// become orphaned but harmless.
func (s *SQLiteStore) DeleteSignalsNotIn(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM signals"); err != nil {
			return fmt.Errorf("deleting all signals: %w", err)
		}
		return nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM signals WHERE id NOT IN (%s)", placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting stale signals: %w", err)
	}
	return nil
}
