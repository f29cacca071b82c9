// file: sqlite_connector.go
package dbconnector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteConnector struct {
	baseConnector
}

// newSQLiteConnector treats Database as the file path.
func newSQLiteConnector(cfg ConnectionConfig) (*SQLiteConnector, error) {
	path := strings.TrimSpace(cfg.Database)
	if path == "" {
		return nil, errors.New("sqlite database path is required")
	}
	db, err := openDatabase("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}
	return &SQLiteConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *SQLiteConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (c *SQLiteConnector) Query(ctx context.Context, query string) (*QueryResult, error) {
	return c.query(ctx, "sqlite", query)
}

func (c *SQLiteConnector) SampleQuery(table string, limit int, orderBy string) (string, error) {
	query, err := limitQuery(table, limit, orderBy, 2, doubleQuote)
	if err != nil {
		return "", fmt.Errorf("sqlite sample query: %w", err)
	}
	return query, nil
}
