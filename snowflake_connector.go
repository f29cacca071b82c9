// file: snowflake_connector.go
package dbconnector

import (
	"context"
	"errors"
	"fmt"

	sf "github.com/snowflakedb/gosnowflake"
)

type SnowflakeConnector struct {
	baseConnector
}

func snowflakeDSN(cfg ConnectionConfig) (string, error) {
	if cfg.Account == "" {
		return "", errors.New("snowflake account is required")
	}
	return sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
}

func newSnowflakeConnector(cfg ConnectionConfig) (*SnowflakeConnector, error) {
	dsn, err := snowflakeDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("build snowflake dsn: %w", err)
	}
	db, err := openDatabase("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake connection: %w", err)
	}
	return &SnowflakeConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *SnowflakeConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping snowflake: %w", err)
	}
	return nil
}

func (c *SnowflakeConnector) Query(ctx context.Context, query string) (*QueryResult, error) {
	return c.query(ctx, "snowflake", query)
}

// SampleQuery accepts database.schema.table names.
func (c *SnowflakeConnector) SampleQuery(table string, limit int, orderBy string) (string, error) {
	query, err := limitQuery(table, limit, orderBy, 3, doubleQuote)
	if err != nil {
		return "", fmt.Errorf("snowflake sample query: %w", err)
	}
	return query, nil
}
