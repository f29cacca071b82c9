package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	dbconnector "datawatch"
)

// DefaultRef names the connection described by the top level SNOWFLAKE_* keys.
const DefaultRef = "snowflake"

type Store interface {
	GetConnection(ctx context.Context, connectionRef string) (dbconnector.ConnectionConfig, error)
}

type secretsFile struct {
	SnowflakeUser      string `toml:"SNOWFLAKE_USER"`
	SnowflakePassword  string `toml:"SNOWFLAKE_PASSWORD"`
	SnowflakeAccount   string `toml:"SNOWFLAKE_ACCOUNT"`
	SnowflakeWarehouse string `toml:"SNOWFLAKE_WAREHOUSE"`
	SnowflakeDatabase  string `toml:"SNOWFLAKE_DATABASE"`
	SnowflakeSchema    string `toml:"SNOWFLAKE_SCHEMA"`
	SnowflakeRole      string `toml:"SNOWFLAKE_ROLE"`

	Connections map[string]connectionEntry `toml:"connections"`
}

type connectionEntry struct {
	Type      string `toml:"type"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Account   string `toml:"account"`
	Warehouse string `toml:"warehouse"`
	Database  string `toml:"database"`
	Schema    string `toml:"schema"`
	Role      string `toml:"role"`
	SSLMode   string `toml:"sslmode"`
}

// TOMLStore reads a secrets.toml file on every lookup so rotated credentials
// are picked up by the next fetch.
type TOMLStore struct {
	Path      string
	Encryptor Encryptor
}

func NewTOMLStore(path string, enc Encryptor) *TOMLStore {
	return &TOMLStore{Path: path, Encryptor: enc}
}

func (s *TOMLStore) GetConnection(ctx context.Context, connectionRef string) (dbconnector.ConnectionConfig, error) {
	var file secretsFile
	if _, err := toml.DecodeFile(s.Path, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dbconnector.ConnectionConfig{}, ErrNotConfigured
		}
		return dbconnector.ConnectionConfig{}, fmt.Errorf("decode secrets file: %w", err)
	}
	var cfg dbconnector.ConnectionConfig
	if entry, ok := file.Connections[connectionRef]; ok {
		cfg = entry.toConfig()
	} else if connectionRef == DefaultRef && file.SnowflakeAccount != "" {
		cfg = dbconnector.ConnectionConfig{
			Type:      "snowflake",
			User:      file.SnowflakeUser,
			Password:  file.SnowflakePassword,
			Account:   file.SnowflakeAccount,
			Warehouse: file.SnowflakeWarehouse,
			Database:  file.SnowflakeDatabase,
			Schema:    file.SnowflakeSchema,
			Role:      file.SnowflakeRole,
		}
	} else {
		return dbconnector.ConnectionConfig{}, ErrNotFound
	}
	if isEncrypted(cfg.Password) {
		if s.Encryptor == nil {
			return dbconnector.ConnectionConfig{}, errors.New("encrypted password but no encryption key configured")
		}
		plain, err := s.Encryptor.Decrypt(cfg.Password)
		if err != nil {
			return dbconnector.ConnectionConfig{}, errors.New("failed to decrypt password")
		}
		cfg.Password = plain
	}
	return cfg, nil
}

func (e connectionEntry) toConfig() dbconnector.ConnectionConfig {
	return dbconnector.ConnectionConfig{
		Type:      e.Type,
		Host:      e.Host,
		Port:      e.Port,
		User:      e.User,
		Password:  e.Password,
		Account:   e.Account,
		Warehouse: e.Warehouse,
		Database:  e.Database,
		Schema:    e.Schema,
		Role:      e.Role,
		SSLMode:   e.SSLMode,
	}
}

// EnvStore layers DATAWATCH_DB_* variables over a base store. With no base, or
// when the base has nothing for the ref, the environment alone must name a type.
type EnvStore struct {
	Base   Store
	Lookup func(string) string
}

func NewEnvStore(base Store) *EnvStore {
	return &EnvStore{Base: base, Lookup: os.Getenv}
}

func (s *EnvStore) GetConnection(ctx context.Context, connectionRef string) (dbconnector.ConnectionConfig, error) {
	var cfg dbconnector.ConnectionConfig
	if s.Base != nil {
		base, err := s.Base.GetConnection(ctx, connectionRef)
		switch {
		case err == nil:
			cfg = base
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotConfigured):
		default:
			return dbconnector.ConnectionConfig{}, err
		}
	}
	lookup := s.Lookup
	if lookup == nil {
		lookup = os.Getenv
	}
	override := func(key string, dst *string) {
		if v := strings.TrimSpace(lookup("DATAWATCH_DB_" + key)); v != "" {
			*dst = v
		}
	}
	override("TYPE", &cfg.Type)
	override("HOST", &cfg.Host)
	override("USER", &cfg.User)
	override("PASSWORD", &cfg.Password)
	override("ACCOUNT", &cfg.Account)
	override("WAREHOUSE", &cfg.Warehouse)
	override("DATABASE", &cfg.Database)
	override("SCHEMA", &cfg.Schema)
	override("ROLE", &cfg.Role)
	override("SSLMODE", &cfg.SSLMode)
	if v := lookup("DATAWATCH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if cfg.Type == "" {
		return dbconnector.ConnectionConfig{}, ErrNotFound
	}
	return cfg, nil
}
