// file: postgres_connector.go
package dbconnector

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

type PostgresConnector struct {
	baseConnector
}

func newPostgresConnector(cfg ConnectionConfig) (*PostgresConnector, error) {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)
	if cfg.Schema != "" {
		dsn += " search_path=" + cfg.Schema
	}
	db, err := openDatabase("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	return &PostgresConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *PostgresConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (c *PostgresConnector) Query(ctx context.Context, query string) (*QueryResult, error) {
	return c.query(ctx, "postgres", query)
}

func (c *PostgresConnector) SampleQuery(table string, limit int, orderBy string) (string, error) {
	query, err := limitQuery(table, limit, orderBy, 2, doubleQuote)
	if err != nil {
		return "", fmt.Errorf("postgres sample query: %w", err)
	}
	return query, nil
}
