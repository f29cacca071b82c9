// file: connector.go
package dbconnector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultSampleLimit = 10

type DbConnector interface {
	TestConnection(ctx context.Context) error

	// Query executes exactly one statement and materializes every row.
	Query(ctx context.Context, query string) (*QueryResult, error)

	SampleQuery(table string, limit int, orderBy string) (string, error)

	Close() error
}

type ConnectionConfig struct {
	Type      string // snowflake | postgres | mysql | mssql | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	Account   string
	Warehouse string
	Database  string
	Schema    string
	Role      string
	SSLMode   string
}

type baseConnector struct {
	cfg ConnectionConfig
	db  *sql.DB
}

func (b *baseConnector) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *baseConnector) query(ctx context.Context, dialect, query string) (*QueryResult, error) {
	rows, err := b.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", dialect, err)
	}
	defer rows.Close()
	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s rows: %w", dialect, err)
	}
	return result, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

func splitIdentifier(ident string) ([]string, error) {
	trimmed := strings.TrimSpace(ident)
	if trimmed == "" {
		return nil, errors.New("identifier is empty")
	}
	parts := strings.Split(trimmed, ".")
	for _, part := range parts {
		if part == "" {
			return nil, errors.New("identifier contains empty segment")
		}
		if !identPattern.MatchString(part) {
			return nil, fmt.Errorf("identifier segment %q is invalid", part)
		}
	}
	return parts, nil
}

func quoteQualified(ident string, maxSegments int, quote func(string) string) (string, []string, error) {
	parts, err := splitIdentifier(ident)
	if err != nil {
		return "", nil, err
	}
	if maxSegments > 0 && len(parts) > maxSegments {
		return "", nil, fmt.Errorf("identifier %q has too many segments", ident)
	}
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = quote(part)
	}
	return strings.Join(quoted, "."), parts, nil
}

func doubleQuote(s string) string { return "\"" + s + "\"" }

func backtick(s string) string { return "`" + s + "`" }

func brackets(s string) string { return "[" + s + "]" }

// limitQuery builds "SELECT * FROM <table> [ORDER BY <col>] LIMIT n". Without an
// order column the returned rows are whatever the engine hands back first.
func limitQuery(table string, limit int, orderBy string, maxSegments int, quote func(string) string) (string, error) {
	quotedTable, _, err := quoteQualified(table, maxSegments, quote)
	if err != nil {
		return "", fmt.Errorf("invalid table: %w", err)
	}
	order, err := orderClause(orderBy, quote)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s%s LIMIT %d", quotedTable, order, normalizeSampleLimit(limit)), nil
}

func orderClause(orderBy string, quote func(string) string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return "", nil
	}
	quoted, _, err := quoteQualified(orderBy, 1, quote)
	if err != nil {
		return "", fmt.Errorf("invalid order column: %w", err)
	}
	return " ORDER BY " + quoted, nil
}

func normalizeSampleLimit(limit int) int {
	if limit <= 0 {
		return defaultSampleLimit
	}
	return limit
}

func scanRows(rows *sql.Rows) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	numeric := make([]bool, len(cols))
	columns := make([]Column, len(cols))
	types, err := rows.ColumnTypes()
	for i, name := range cols {
		columns[i] = Column{Name: name, Values: []Value{}}
		if err == nil && i < len(types) && types[i] != nil {
			columns[i].DatabaseType = types[i].DatabaseTypeName()
			numeric[i] = isNumericType(columns[i].DatabaseType)
		}
	}
	for rows.Next() {
		values := make([]any, len(cols))
		for i := range values {
			var v any
			values[i] = &v
		}
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		for i := range cols {
			v := *(values[i].(*any))
			columns[i].Values = append(columns[i].Values, normalizeValue(v, numeric[i]))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return NewQueryResult(columns)
}

var numericTypes = map[string]struct{}{
	"INT": {}, "INTEGER": {}, "TINYINT": {}, "SMALLINT": {}, "MEDIUMINT": {}, "BIGINT": {},
	"INT2": {}, "INT4": {}, "INT8": {}, "UNSIGNED INT": {}, "UNSIGNED BIGINT": {},
	"UNSIGNED TINYINT": {}, "UNSIGNED SMALLINT": {}, "UNSIGNED MEDIUMINT": {},
	"DECIMAL": {}, "NUMERIC": {}, "NUMBER": {}, "FIXED": {}, "MONEY": {}, "SMALLMONEY": {},
	"FLOAT": {}, "FLOAT4": {}, "FLOAT8": {}, "DOUBLE": {}, "REAL": {}, "DOUBLE PRECISION": {},
}

func isNumericType(dbType string) bool {
	_, ok := numericTypes[strings.ToUpper(strings.TrimSpace(dbType))]
	return ok
}

// normalizeValue tags a driver value. Text from a numeric column (DECIMAL over
// the MySQL text protocol, Snowflake FIXED) is parsed back into a number.
func normalizeValue(v any, numericColumn bool) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Text(strconv.FormatBool(t))
	case time.Time:
		return Text(t.Format(time.RFC3339Nano))
	case []byte:
		return textValue(string(t), numericColumn)
	case string:
		return textValue(t, numericColumn)
	}
	if f, ok := toFloat(v); ok {
		return Number(f)
	}
	return Text(fmt.Sprint(v))
}

func textValue(s string, numericColumn bool) Value {
	if numericColumn {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return Number(f)
		}
	}
	return Text(s)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
