// file: mssql_connector.go
package dbconnector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
)

type MSSQLConnector struct {
	baseConnector
}

func newMSSQLConnector(cfg ConnectionConfig) (*MSSQLConnector, error) {
	if cfg.Port == 0 {
		cfg.Port = 1433
	}
	user := url.QueryEscape(cfg.User)
	pass := url.QueryEscape(cfg.Password)
	sslMode := strings.ToLower(strings.TrimSpace(cfg.SSLMode))
	encrypt := "true"
	if sslMode == "disable" {
		encrypt = "disable"
	}
	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s&encrypt=%s", user, pass, cfg.Host, cfg.Port, cfg.Database, encrypt)
	db, err := openDatabase("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mssql connection: %w", err)
	}
	return &MSSQLConnector{baseConnector{cfg: cfg, db: db}}, nil
}

func (c *MSSQLConnector) TestConnection(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping mssql: %w", err)
	}
	return nil
}

func (c *MSSQLConnector) Query(ctx context.Context, query string) (*QueryResult, error) {
	return c.query(ctx, "mssql", query)
}

// SampleQuery uses TOP since SQL Server has no LIMIT clause.
func (c *MSSQLConnector) SampleQuery(table string, limit int, orderBy string) (string, error) {
	quoted, err := quoteMSSQLTable(table)
	if err != nil {
		return "", err
	}
	order, err := orderClause(orderBy, brackets)
	if err != nil {
		return "", fmt.Errorf("mssql sample query: %w", err)
	}
	return fmt.Sprintf("SELECT TOP %d * FROM %s%s", normalizeSampleLimit(limit), quoted, order), nil
}

func parseMSSQLTable(table string) (string, string, error) {
	_, parts, err := quoteQualified(table, 2, brackets)
	if err != nil {
		return "", "", fmt.Errorf("invalid mssql table: %w", err)
	}
	if len(parts) == 1 {
		return "dbo", parts[0], nil
	}
	return parts[0], parts[1], nil
}

func quoteMSSQLTable(table string) (string, error) {
	schema, name, err := parseMSSQLTable(table)
	if err != nil {
		return "", err
	}
	return brackets(schema) + "." + brackets(name), nil
}
