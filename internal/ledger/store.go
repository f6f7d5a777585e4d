// Package ledger persists the authoritative record of every meeting the
// bridge has created upstream, and drives later fan-out cancellation.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/qwli7/meetbridge/internal/log"
)

// Store provides SQLite persistence for meeting records. Rows are appended
// on reservation and only ever mutated by cancellation; nothing is deleted.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the ledger database and runs migrations.
// busy_timeout avoids "database locked" errors; the single-connection pool
// gives every operation the exclusive-writer semantics the ledger requires.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		token TEXT NOT NULL,
		form_id TEXT NOT NULL,
		form_name TEXT NOT NULL,
		subject TEXT NOT NULL,
		room_label TEXT NOT NULL,
		scheduled_at TEXT NOT NULL,
		scheduled_label TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('RESERVED', 'CANCELLED')),
		meeting_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		cancelled_at TEXT NOT NULL DEFAULT '',
		operator_name TEXT NOT NULL DEFAULT '',
		operator_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_token ON meetings(token);
	CREATE INDEX IF NOT EXISTS idx_meetings_token_status ON meetings(token, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store appends a meeting record. If a row with the same token, room label,
// scheduled label and status already exists, the call is a no-op: webhook
// deliveries are retried by the form service and must not duplicate rows.
// The room label is part of the key because one submission can reserve
// several rooms for the same time range, and each needs its own row for
// cancellation to release it.
func (s *Store) Store(ctx context.Context, rec MeetingRecord) error {
	status := NormalizeStatus(rec.Status)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM meetings WHERE token = ? AND room_label = ? AND scheduled_label = ? AND status = ?)`,
		rec.Token, rec.RoomLabel, rec.ScheduledLabel, status,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing: %w", err)
	}
	if exists {
		logger := log.WithComponentFromContext(ctx, "ledger")
		logger.Info().
			Str(log.FieldToken, rec.Token).
			Str(log.FieldRoomLabel, rec.RoomLabel).
			Str("scheduled_label", rec.ScheduledLabel).
			Msg("duplicate meeting record ignored")
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO meetings (
		token, form_id, form_name, subject, room_label,
		scheduled_at, scheduled_label, status, meeting_id, room_id,
		created_at, cancelled_at, operator_name, operator_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.FormID, rec.FormName, rec.Subject, rec.RoomLabel,
		rec.ScheduledAt, rec.ScheduledLabel, status, rec.MeetingID, rec.RoomID,
		rec.CreatedAt, rec.CancelledAt, rec.OperatorName, rec.OperatorID,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "ledger")
	logger.Info().
		Str(log.FieldToken, rec.Token).
		Str(log.FieldMeetingID, rec.MeetingID).
		Str("scheduled_label", rec.ScheduledLabel).
		Msg("stored meeting record")
	return nil
}

const recordColumns = `token, form_id, form_name, subject, room_label,
	scheduled_at, scheduled_label, status, meeting_id, room_id,
	created_at, cancelled_at, operator_name, operator_id`

func scanRecord(row interface{ Scan(...any) error }) (MeetingRecord, error) {
	var r MeetingRecord
	err := row.Scan(
		&r.Token, &r.FormID, &r.FormName, &r.Subject, &r.RoomLabel,
		&r.ScheduledAt, &r.ScheduledLabel, &r.Status, &r.MeetingID, &r.RoomID,
		&r.CreatedAt, &r.CancelledAt, &r.OperatorName, &r.OperatorID,
	)
	return r, err
}

// FindActive returns a record for token whose status is not CANCELLED, or
// nil if there is none.
func (s *Store) FindActive(ctx context.Context, token string) (*MeetingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM meetings WHERE token = ? AND status != ? LIMIT 1`,
		token, StatusCancelled,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active: %w", err)
	}
	return &rec, nil
}

// FindAll returns every record for token, in insertion order.
func (s *Store) FindAll(ctx context.Context, token string) ([]MeetingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM meetings WHERE token = ? ORDER BY rowid`,
		token,
	)
	if err != nil {
		return nil, fmt.Errorf("find all: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []MeetingRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Cancel transitions every RESERVED row for token to CANCELLED and returns
// the (meeting_id, room_id) pairs just transitioned. Rows already cancelled
// are untouched and not returned.
func (s *Store) Cancel(ctx context.Context, token string) ([]CancelledMeeting, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT meeting_id, room_id FROM meetings WHERE token = ? AND status = ? ORDER BY rowid`,
		token, StatusReserved,
	)
	if err != nil {
		return nil, fmt.Errorf("select reserved: %w", err)
	}

	var cancelled []CancelledMeeting
	for rows.Next() {
		var c CancelledMeeting
		if err := rows.Scan(&c.MeetingID, &c.RoomID); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan reserved: %w", err)
		}
		cancelled = append(cancelled, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(cancelled) == 0 {
		return nil, tx.Commit()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE meetings SET status = ?, cancelled_at = ? WHERE token = ? AND status = ?`,
		StatusCancelled, now, token, StatusReserved,
	); err != nil {
		return nil, fmt.Errorf("mark cancelled: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	logger := log.WithComponentFromContext(ctx, "ledger")
	logger.Info().
		Str(log.FieldToken, token).
		Int("count", len(cancelled)).
		Msg("marked meetings cancelled")
	return cancelled, nil
}
