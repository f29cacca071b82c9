package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	dbconnector "datawatch"
	"datawatch/services/watch-service/internal/bus"
	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/security"
	"datawatch/services/watch-service/internal/validation"
)

const (
	DefaultTable    = "EMPLOYEE.PUBLIC.EMPLOYEE"
	DefaultLimit    = 10
	DefaultInterval = 10
	DefaultThresh   = 6.0
)

type Config struct {
	Source struct {
		ConnectionRef string `yaml:"connection_ref"` // "snowflake"
		Dialect       string `yaml:"dialect"`        // SQL dialect of the connection, used to build the sample query
		Table         string `yaml:"table"`          // "EMPLOYEE.PUBLIC.EMPLOYEE"
		Limit         int    `yaml:"limit"`          // 10
		OrderBy       string `yaml:"order_by"`       // optional, makes the sample deterministic
		Query         string `yaml:"query"`          // overrides table/limit/order_by
	} `yaml:"source"`

	Refresh struct {
		IntervalSeconds     int     `yaml:"interval_seconds"`
		Threshold           float64 `yaml:"threshold"`
		QueryTimeoutSeconds int     `yaml:"query_timeout_seconds"`
		AutoStart           bool    `yaml:"auto_start"`
	} `yaml:"refresh"`

	Rules []validation.RuleSpec `yaml:"rules"`

	Ledger ledger.Config `yaml:"ledger"`

	Secrets struct {
		Path string `yaml:"path"` // TOML file with [connections.<ref>] tables
	} `yaml:"secrets"`

	NATS struct {
		URL           string `yaml:"url"` // empty disables the bus
		ToggleSubject string `yaml:"toggle_subject"`
		PublishEvents bool   `yaml:"publish_events"`
	} `yaml:"nats"`

	HTTP struct {
		Port string `yaml:"port"`
	} `yaml:"http"`

	Console struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"console"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	Allowlist []string `yaml:"allowlist"`
}

func Default() Config {
	var c Config
	c.Source.ConnectionRef = "snowflake"
	c.Source.Dialect = "snowflake"
	c.Source.Table = DefaultTable
	c.Source.Limit = DefaultLimit
	c.Refresh.IntervalSeconds = DefaultInterval
	c.Refresh.Threshold = DefaultThresh
	c.Refresh.QueryTimeoutSeconds = 30
	c.Rules = validation.DefaultRuleSpecs()
	c.Ledger.Driver = "sqlite"
	c.Ledger.DSN = "./datawatch.db"
	c.Secrets.Path = "./secrets.toml"
	c.NATS.ToggleSubject = bus.DefaultToggleSubject
	c.HTTP.Port = "8090"
	c.Console.Enabled = true
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

// Load reads path over Default() and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	env := envReader(getenv)
	env.str("DATAWATCH_HTTP_PORT", &c.HTTP.Port)
	env.str("DATAWATCH_LEDGER_DRIVER", &c.Ledger.Driver)
	env.str("DATAWATCH_LEDGER_DSN", &c.Ledger.DSN)
	env.str("DATAWATCH_SECRETS_PATH", &c.Secrets.Path)
	env.str("DATAWATCH_CONNECTION_REF", &c.Source.ConnectionRef)
	env.str("DATAWATCH_TABLE", &c.Source.Table)
	env.str("DATAWATCH_DIALECT", &c.Source.Dialect)
	env.str("NATS_URL", &c.NATS.URL)
	env.str("DATAWATCH_LOG_FORMAT", &c.Logging.Format)
	env.str("DATAWATCH_LOG_LEVEL", &c.Logging.Level)
	if err := env.integer("DATAWATCH_INTERVAL_SECONDS", &c.Refresh.IntervalSeconds); err != nil {
		return Config{}, err
	}
	if err := env.float("DATAWATCH_THRESHOLD", &c.Refresh.Threshold); err != nil {
		return Config{}, err
	}
	return c, nil
}

type envReader func(string) string

func (e envReader) str(key string, dst *string) {
	if v := strings.TrimSpace(e(key)); v != "" {
		*dst = v
	}
}

func (e envReader) integer(key string, dst *int) error {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func (e envReader) float(key string, dst *float64) error {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}

// Validate checks the config against limits and returns every problem found.
func (c Config) Validate(limits security.Limits) error {
	var errs []error
	if c.Refresh.IntervalSeconds < limits.MinPollSeconds || c.Refresh.IntervalSeconds > limits.MaxPollSeconds {
		errs = append(errs, fmt.Errorf("refresh.interval_seconds must be between %d and %d", limits.MinPollSeconds, limits.MaxPollSeconds))
	}
	if math.IsNaN(c.Refresh.Threshold) || math.IsInf(c.Refresh.Threshold, 0) {
		errs = append(errs, errors.New("refresh.threshold must be a finite number"))
	}
	if c.Refresh.QueryTimeoutSeconds < 0 || c.QueryTimeout() > limits.MaxQueryDuration {
		errs = append(errs, fmt.Errorf("refresh.query_timeout_seconds must be at most %s", limits.MaxQueryDuration))
	}
	if strings.TrimSpace(c.Source.Query) == "" {
		if !security.IsSafeQualifiedIdentifier(c.Source.Table, 3) {
			errs = append(errs, fmt.Errorf("source.table %q is not a valid identifier", c.Source.Table))
		}
		if c.Source.Limit < 0 || c.Source.Limit > limits.MaxRowLimit {
			errs = append(errs, fmt.Errorf("source.limit must be between 0 and %d", limits.MaxRowLimit))
		}
		if c.Source.OrderBy != "" && !security.IsSafeIdentifier(c.Source.OrderBy) {
			errs = append(errs, fmt.Errorf("source.order_by %q is not a valid identifier", c.Source.OrderBy))
		}
		if !(security.Allowlist{Tables: c.Allowlist}).AllowsTable(c.Source.Table) {
			errs = append(errs, fmt.Errorf("source.table %q is not allowlisted", c.Source.Table))
		}
		if _, err := c.SampleQuery(); err != nil {
			errs = append(errs, fmt.Errorf("source.dialect: %w", err))
		}
	}
	if strings.TrimSpace(c.Source.ConnectionRef) == "" {
		errs = append(errs, errors.New("source.connection_ref is required"))
	}
	switch strings.ToLower(c.Ledger.Driver) {
	case "", "sqlite", "sqlite3", "postgres", "postgresql", "memory":
	default:
		errs = append(errs, fmt.Errorf("ledger.driver %q is not supported", c.Ledger.Driver))
	}
	if _, perr := validation.BuildRules(c.Rules); perr != nil {
		errs = append(errs, perr)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not supported", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// SampleQuery returns source.query when set, otherwise the dialect's
// "first n rows" statement for source.table.
func (c Config) SampleQuery() (string, error) {
	if strings.TrimSpace(c.Source.Query) != "" {
		return c.Source.Query, nil
	}
	return dbconnector.SampleQuery(c.Source.Dialect, c.Source.Table, c.Source.Limit, c.Source.OrderBy)
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

func (c Config) QueryTimeout() time.Duration {
	return time.Duration(c.Refresh.QueryTimeoutSeconds) * time.Second
}
