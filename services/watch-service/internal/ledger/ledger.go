// Package ledger records alerts that were already sent so each distinct
// alert message goes out at most once.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDuplicateAlert = errors.New("alert already sent")
	ErrEmptyMessage   = errors.New("alert message is empty")
	ErrUnknownDriver  = errors.New("unknown ledger driver")
)

type AlertRecord struct {
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type SendResult struct {
	Sent bool `json:"sent"`
}

type Ledger interface {
	// SendOnce records message and reports Sent=true only for the first
	// caller. A duplicate is not an error.
	SendOnce(ctx context.Context, message string) (SendResult, error)
	List(ctx context.Context) ([]AlertRecord, error)
	Close() error
}

type Config struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Open builds the backend named by cfg.Driver and makes sure its schema exists.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
		path := cfg.DSN
		if path == "" {
			path = "datawatch.db"
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case "memory":
		return NewMemory(), nil
	case "postgres", "postgresql":
		store, err := NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := store.CreateSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

func validateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	return nil
}
