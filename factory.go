// file: factory.go
package dbconnector

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type ConnectorFactory func(cfg ConnectionConfig) (DbConnector, error)

func NewConnector(cfg ConnectionConfig) (DbConnector, error) {
	if strings.TrimSpace(cfg.Type) == "" {
		return nil, errors.New("connection type is required")
	}
	switch strings.ToLower(cfg.Type) {
	case "snowflake":
		return newSnowflakeConnector(cfg)
	case "mysql":
		return newMySQLConnector(cfg)
	case "postgres", "postgresql":
		return newPostgresConnector(cfg)
	case "mssql", "sqlserver":
		return newMSSQLConnector(cfg)
	case "sqlite", "sqlite3":
		return newSQLiteConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// SampleQuery builds the "first n rows" statement for a dialect. It needs no
// connection parameters, so a watcher can build its query before any
// credentials exist.
func SampleQuery(dialect, table string, limit int, orderBy string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "snowflake":
		return (&SnowflakeConnector{}).SampleQuery(table, limit, orderBy)
	case "mysql":
		return (&MySQLConnector{}).SampleQuery(table, limit, orderBy)
	case "postgres", "postgresql":
		return (&PostgresConnector{}).SampleQuery(table, limit, orderBy)
	case "mssql", "sqlserver":
		return (&MSSQLConnector{}).SampleQuery(table, limit, orderBy)
	case "sqlite", "sqlite3":
		return (&SQLiteConnector{}).SampleQuery(table, limit, orderBy)
	default:
		return "", fmt.Errorf("unsupported database type %q", dialect)
	}
}

func openDatabase(driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
