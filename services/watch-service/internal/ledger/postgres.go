package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Store is the PostgreSQL ledger, shared by several watcher processes.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres ledger requires a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{Pool: pool, Now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sent_alerts (
			id BIGSERIAL PRIMARY KEY,
			alert_message TEXT UNIQUE NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

func (s *Store) SendOnce(ctx context.Context, message string) (SendResult, error) {
	if err := validateMessage(message); err != nil {
		return SendResult{}, err
	}
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return SendResult{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sentAt := time.Now().UTC()
	if s.Now != nil {
		sentAt = s.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `INSERT INTO sent_alerts (alert_message, sent_at) VALUES ($1, $2)`, message, sentAt); err != nil {
		if isUniqueViolation(err) {
			return SendResult{Sent: false}, nil
		}
		return SendResult{}, fmt.Errorf("record alert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return SendResult{Sent: false}, nil
		}
		return SendResult{}, fmt.Errorf("commit alert: %w", err)
	}
	return SendResult{Sent: true}, nil
}

func (s *Store) List(ctx context.Context) ([]AlertRecord, error) {
	rows, err := s.Pool.Query(ctx, `SELECT alert_message, sent_at FROM sent_alerts ORDER BY sent_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	out := []AlertRecord{}
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(&rec.Message, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
