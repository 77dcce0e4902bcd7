// Package config defines the top-level configuration for the saveDAI ledger
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SAVEDAI_* environment variables.
type Config struct {
	Token    TokenConfig    `toml:"token"`
	Operator OperatorConfig `toml:"operator"`
	Venues   VenuesConfig   `toml:"venues"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TokenConfig holds the wrapped token's metadata seed. These values are only
// written on first boot; after that the persisted row wins.
type TokenConfig struct {
	Name     string `toml:"name"`
	Symbol   string `toml:"symbol"`
	Decimals int    `toml:"decimals"`
	Owner    string `toml:"owner"`
}

// OperatorConfig holds the operator signing key used by the live chain
// venues.
type OperatorConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// VenuesConfig selects and parameterizes the external venues backing the
// option, lending, and exchange legs.
type VenuesConfig struct {
	// Backend is "fake" for the in-process simulated venues or "live" for
	// on-chain adapters.
	Backend string      `toml:"backend"`
	Fake    FakeConfig  `toml:"fake"`
	Chain   ChainConfig `toml:"chain"`
}

// FakeConfig seeds the simulated venues. Amounts are decimal big-integer
// strings in the smallest unit.
type FakeConfig struct {
	StableReserve  string   `toml:"stable_reserve"`
	NativeReserve  string   `toml:"native_reserve"`
	PoolNative     string   `toml:"pool_native"`
	OptionReserve  string   `toml:"option_reserve"`
	ExchangeRate   string   `toml:"exchange_rate"`
	PayoutRate     string   `toml:"payout_rate"`
	ExpiryIn       duration `toml:"expiry_in"`
	ExerciseWindow duration `toml:"exercise_window"`
}

// ChainConfig holds the RPC endpoint and contract addresses for the live
// venues.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ChainID         int64  `toml:"chain_id"`
	StableToken     string `toml:"stable_token"`
	InterestToken   string `toml:"interest_token"`
	OptionToken     string `toml:"option_token"`
	RewardToken     string `toml:"reward_token"`
	ExchangeFactory string `toml:"exchange_factory"`
	ComptrollerAddr string `toml:"comptroller_addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds audit-log archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	BatchSize     int      `toml:"batch_size"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "720h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Token: TokenConfig{
			Name:     "saveDAI",
			Symbol:   "SVDAI",
			Decimals: 8,
		},
		Venues: VenuesConfig{
			Backend: "fake",
			Fake: FakeConfig{
				StableReserve:  "1000000000000",
				NativeReserve:  "1000000000000",
				PoolNative:     "1000000000000",
				OptionReserve:  "1000000000000",
				ExchangeRate:   "1000000000000000000",
				PayoutRate:     "1000000000000000000",
				ExpiryIn:       duration{720 * time.Hour},
				ExerciseWindow: duration{336 * time.Hour},
			},
			Chain: ChainConfig{
				ChainID: 1,
			},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "savedai-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			BatchSize:     1000,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"paused", "unpaused", "exercise", "error"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":   true,
	"archive": true,
	"quote":   true,
	"dry-run": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, archive, quote, dry-run)", c.Mode))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Token
	if strings.TrimSpace(c.Token.Name) == "" {
		errs = append(errs, "token: name must not be empty")
	}
	if strings.TrimSpace(c.Token.Symbol) == "" {
		errs = append(errs, "token: symbol must not be empty")
	}
	if c.Token.Decimals < 0 || c.Token.Decimals > 18 {
		errs = append(errs, fmt.Sprintf("token: decimals must be 0-18, got %d", c.Token.Decimals))
	}
	if c.Token.Owner == "" {
		errs = append(errs, "token: owner must not be empty")
	}

	// Venues
	switch c.Venues.Backend {
	case "fake":
		for _, f := range []struct{ name, val string }{
			{"stable_reserve", c.Venues.Fake.StableReserve},
			{"native_reserve", c.Venues.Fake.NativeReserve},
			{"pool_native", c.Venues.Fake.PoolNative},
			{"option_reserve", c.Venues.Fake.OptionReserve},
			{"exchange_rate", c.Venues.Fake.ExchangeRate},
			{"payout_rate", c.Venues.Fake.PayoutRate},
		} {
			if _, ok := new(big.Int).SetString(f.val, 10); !ok {
				errs = append(errs, fmt.Sprintf("venues.fake: %s must be a base-10 integer, got %q", f.name, f.val))
			}
		}
		if c.Venues.Fake.ExerciseWindow.Duration <= 0 {
			errs = append(errs, "venues.fake: exercise_window must be positive")
		}
	case "live":
		if c.Venues.Chain.RPCURL == "" {
			errs = append(errs, "venues.chain: rpc_url is required for the live backend")
		}
		if c.Venues.Chain.ChainID <= 0 {
			errs = append(errs, "venues.chain: chain_id must be positive")
		}
		for _, f := range []struct{ name, val string }{
			{"stable_token", c.Venues.Chain.StableToken},
			{"interest_token", c.Venues.Chain.InterestToken},
			{"option_token", c.Venues.Chain.OptionToken},
			{"exchange_factory", c.Venues.Chain.ExchangeFactory},
		} {
			if f.val == "" {
				errs = append(errs, fmt.Sprintf("venues.chain: %s must not be empty for the live backend", f.name))
			}
		}
		if c.Operator.PrivateKey == "" && c.Operator.EncryptedKeyPath == "" {
			errs = append(errs, "operator: either private_key or encrypted_key_path must be set for the live backend")
		}
		if c.Operator.EncryptedKeyPath != "" && c.Operator.KeyPassword == "" {
			errs = append(errs, "operator: key_password is required when encrypted_key_path is set")
		}
	default:
		errs = append(errs, fmt.Sprintf("venues: backend must be fake or live, got %q", c.Venues.Backend))
	}

	// Postgres. Dry-run mode keeps everything in memory and skips the store.
	if c.Mode != "dry-run" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}

		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 only matters when archival is on.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.BatchSize < 1 {
			errs = append(errs, "archive: batch_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
