package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SAVEDAI_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SAVEDAI_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Token ──
	setStr(&cfg.Token.Name, "SAVEDAI_TOKEN_NAME")
	setStr(&cfg.Token.Symbol, "SAVEDAI_TOKEN_SYMBOL")
	setInt(&cfg.Token.Decimals, "SAVEDAI_TOKEN_DECIMALS")
	setStr(&cfg.Token.Owner, "SAVEDAI_TOKEN_OWNER")

	// ── Operator ──
	setStr(&cfg.Operator.PrivateKey, "SAVEDAI_OPERATOR_PRIVATE_KEY")
	setStr(&cfg.Operator.EncryptedKeyPath, "SAVEDAI_OPERATOR_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Operator.KeyPassword, "SAVEDAI_OPERATOR_KEY_PASSWORD")

	// ── Venues ──
	setStr(&cfg.Venues.Backend, "SAVEDAI_VENUES_BACKEND")
	setStr(&cfg.Venues.Chain.RPCURL, "SAVEDAI_CHAIN_RPC_URL")
	setInt64(&cfg.Venues.Chain.ChainID, "SAVEDAI_CHAIN_ID")
	setStr(&cfg.Venues.Chain.StableToken, "SAVEDAI_CHAIN_STABLE_TOKEN")
	setStr(&cfg.Venues.Chain.InterestToken, "SAVEDAI_CHAIN_INTEREST_TOKEN")
	setStr(&cfg.Venues.Chain.OptionToken, "SAVEDAI_CHAIN_OPTION_TOKEN")
	setStr(&cfg.Venues.Chain.RewardToken, "SAVEDAI_CHAIN_REWARD_TOKEN")
	setStr(&cfg.Venues.Chain.ExchangeFactory, "SAVEDAI_CHAIN_EXCHANGE_FACTORY")
	setStr(&cfg.Venues.Chain.ComptrollerAddr, "SAVEDAI_CHAIN_COMPTROLLER_ADDR")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SAVEDAI_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SAVEDAI_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SAVEDAI_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SAVEDAI_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SAVEDAI_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SAVEDAI_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SAVEDAI_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SAVEDAI_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SAVEDAI_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SAVEDAI_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SAVEDAI_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SAVEDAI_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SAVEDAI_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SAVEDAI_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SAVEDAI_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SAVEDAI_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SAVEDAI_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SAVEDAI_S3_REGION")
	setStr(&cfg.S3.Bucket, "SAVEDAI_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SAVEDAI_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SAVEDAI_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SAVEDAI_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SAVEDAI_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SAVEDAI_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SAVEDAI_ARCHIVE_RETENTION_DAYS")
	setInt(&cfg.Archive.BatchSize, "SAVEDAI_ARCHIVE_BATCH_SIZE")
	setDuration(&cfg.Archive.Interval, "SAVEDAI_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SAVEDAI_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SAVEDAI_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SAVEDAI_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SAVEDAI_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SAVEDAI_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SAVEDAI_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SAVEDAI_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SAVEDAI_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SAVEDAI_MODE")
	setStr(&cfg.LogLevel, "SAVEDAI_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
