package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"datawatch/services/watch-service/internal/config"
)

func TestRunStartsWithoutSecrets(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Secrets.Path = filepath.Join(dir, "missing.toml")
	cfg.Ledger.DSN = filepath.Join(dir, "alerts.db")
	cfg.HTTP.Port = "0"
	cfg.Console.Enabled = false
	cfg.Refresh.AutoStart = true

	var logs bytes.Buffer
	logger := config.NewLogger(&logs, "json", "info")
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := run(ctx, cfg, nil, logger); err != nil {
		t.Fatalf("run must keep serving without credentials, got %v", err)
	}
	if time.Since(start) < 400*time.Millisecond {
		t.Fatalf("run returned before its context was done")
	}
	if !strings.Contains(logs.String(), "Error running query: data source connect") {
		t.Fatalf("expected the cycle to report the missing credentials:\n%s", logs.String())
	}
}

func TestRunRejectsUnknownDialect(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Dialect = "oracle"
	err := run(context.Background(), cfg, nil, config.NewLogger(&bytes.Buffer{}, "json", "error"))
	if err == nil || !strings.Contains(err.Error(), "source.dialect") {
		t.Fatalf("expected dialect config error, got %v", err)
	}
}

func TestBuildEncryptor(t *testing.T) {
	enc, err := buildEncryptor("")
	if err != nil || enc != nil {
		t.Fatalf("empty key must disable encryption, got %v %v", enc, err)
	}
	if _, err := buildEncryptor("short"); err == nil {
		t.Fatalf("expected error for short key")
	}
	enc, err = buildEncryptor(strings.Repeat("k", 32))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sealed, err := enc.Encrypt("hunter2")
	if err != nil || !strings.HasPrefix(sealed, "enc:") {
		t.Fatalf("unexpected ciphertext %q %v", sealed, err)
	}
}

func TestSessionSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Console.Enabled = false
	if got := sessionSinks(cfg, nil, nil)("s"); len(got) != 1 {
		t.Fatalf("expected only the log sink, got %d", len(got))
	}
	cfg.Console.Enabled = true
	if got := sessionSinks(cfg, nil, nil)("s"); len(got) != 2 {
		t.Fatalf("expected log and console sinks, got %d", len(got))
	}
}
