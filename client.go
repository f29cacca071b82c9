// file: client.go
package dbconnector

import (
	"context"
	"errors"
	"fmt"
)

// SecretsProvider supplies connection parameters. The client never validates
// them itself; the dialect driver does.
type SecretsProvider interface {
	ConnectionConfig(ctx context.Context) (ConnectionConfig, error)
}

// DataSourceError is the single failure kind of Client.Fetch. Op is "connect"
// or "query".
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func IsDataSourceError(err error) bool {
	var dsErr *DataSourceError
	return errors.As(err, &dsErr)
}

// Client opens a fresh connection for every Fetch and always releases it.
type Client struct {
	Secrets SecretsProvider
	Factory ConnectorFactory
}

func NewClient(secrets SecretsProvider, factory ConnectorFactory) *Client {
	if factory == nil {
		factory = NewConnector
	}
	return &Client{Secrets: secrets, Factory: factory}
}

func (c *Client) Fetch(ctx context.Context, query string) (result *QueryResult, err error) {
	conn, err := c.open(ctx)
	if err != nil {
		return nil, &DataSourceError{Op: "connect", Err: err}
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			result, err = nil, &DataSourceError{Op: "query", Err: fmt.Errorf("close connection: %w", closeErr)}
		}
	}()
	if err := conn.TestConnection(ctx); err != nil {
		return nil, &DataSourceError{Op: "connect", Err: err}
	}
	result, err = conn.Query(ctx, query)
	if err != nil {
		return nil, &DataSourceError{Op: "query", Err: err}
	}
	return result, nil
}

func (c *Client) open(ctx context.Context) (DbConnector, error) {
	if c.Secrets == nil {
		return nil, errors.New("secrets provider not configured")
	}
	cfg, err := c.Secrets.ConnectionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve connection: %w", err)
	}
	factory := c.Factory
	if factory == nil {
		factory = NewConnector
	}
	return factory(cfg)
}
