package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite is the embedded ledger. It uses a single connection so that
// concurrent senders are serialized by database/sql.
type SQLite struct {
	conn *sql.DB
	Now  func() time.Time
}

func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	c.SetMaxOpenConns(1)
	return &SQLite{conn: c, Now: time.Now}, nil
}

func (db *SQLite) Close() error { return db.conn.Close() }

func (db *SQLite) CreateSchema(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sent_alerts (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  alert_message TEXT UNIQUE NOT NULL,
  sent_at       TEXT NOT NULL  -- RFC3339Nano
);`)
	if err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

func (db *SQLite) SendOnce(ctx context.Context, message string) (SendResult, error) {
	if err := validateMessage(message); err != nil {
		return SendResult{}, err
	}
	err := db.insert(ctx, message)
	switch {
	case err == nil:
		return SendResult{Sent: true}, nil
	case errors.Is(err, ErrDuplicateAlert):
		return SendResult{Sent: false}, nil
	default:
		return SendResult{}, err
	}
}

func (db *SQLite) insert(ctx context.Context, message string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := db.now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `INSERT INTO sent_alerts (alert_message, sent_at) VALUES (?, ?)`, message, ts); err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateAlert
		}
		return fmt.Errorf("record alert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit alert: %w", err)
	}
	return nil
}

func (db *SQLite) List(ctx context.Context) ([]AlertRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT alert_message, sent_at FROM sent_alerts ORDER BY sent_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	out := []AlertRecord{}
	for rows.Next() {
		var (
			rec AlertRecord
			ts  string
		)
		if err := rows.Scan(&rec.Message, &ts); err != nil {
			return nil, err
		}
		if rec.SentAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse sent_at %q: %w", ts, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (db *SQLite) now() time.Time {
	if db.Now == nil {
		return time.Now()
	}
	return db.Now()
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
