package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	s3blob "github.com/save-dai/savedai-contract-v1/internal/blob/s3"
	"github.com/save-dai/savedai-contract-v1/internal/cache/redis"
	"github.com/save-dai/savedai-contract-v1/internal/config"
	"github.com/save-dai/savedai-contract-v1/internal/crypto"
	"github.com/save-dai/savedai-contract-v1/internal/domain"
	"github.com/save-dai/savedai-contract-v1/internal/ledger"
	"github.com/save-dai/savedai-contract-v1/internal/notify"
	"github.com/save-dai/savedai-contract-v1/internal/store/memory"
	"github.com/save-dai/savedai-contract-v1/internal/store/postgres"
	"github.com/save-dai/savedai-contract-v1/internal/vault"
	"github.com/save-dai/savedai-contract-v1/internal/venue/chain"
	"github.com/save-dai/savedai-contract-v1/internal/venue/fake"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Ledger   *ledger.Ledger
	Registry *vault.Registry

	AuditStore domain.AuditStore
	SignalBus  domain.SignalBus

	// Subscriber is non-nil only when a real bus backs the deployment; the
	// websocket hub and notification watcher need it.
	Subscriber *redis.SignalBus
	QuoteCache *redis.QuoteCache

	Archiver *s3blob.Archiver
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	dryRun := cfg.Mode == "dry-run"

	// --- Stores ---
	var (
		balances   domain.BalanceStore
		allowances domain.AllowanceStore
		vaults     domain.VaultStore
		meta       domain.TokenMetaStore
	)

	seedMeta := domain.TokenMeta{
		Name:     cfg.Token.Name,
		Symbol:   cfg.Token.Symbol,
		Decimals: uint8(cfg.Token.Decimals),
		Owner:    cfg.Token.Owner,
	}

	if dryRun {
		balances = memory.NewBalanceStore()
		allowances = memory.NewAllowanceStore()
		vaults = memory.NewVaultStore()
		meta = memory.NewTokenMetaStore(seedMeta)
		deps.AuditStore = memory.NewAuditStore()
		deps.SignalBus = memory.NewSignalBus()
	} else {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		balances = postgres.NewBalanceStore(pool)
		allowances = postgres.NewAllowanceStore(pool)
		vaults = postgres.NewVaultStore(pool)
		metaStore := postgres.NewTokenMetaStore(pool)
		auditStore := postgres.NewAuditStore(pool)
		meta = metaStore
		deps.AuditStore = auditStore

		// Seed the metadata row on first boot; the persisted row wins after.
		if _, err := metaStore.Get(ctx); err != nil {
			if err := metaStore.Put(ctx, seedMeta); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: seed token meta: %w", err)
			}
		}

		// --- Redis ---
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		bus := redis.NewSignalBus(redisClient)
		deps.SignalBus = bus
		deps.Subscriber = bus
		deps.QuoteCache = redis.NewQuoteCache(redisClient)

		// --- S3 blob storage (audit archival) ---
		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}

			archiver := s3blob.NewArchiver(s3blob.NewWriter(s3Client), auditStore, auditStore, logger)
			archiver.BatchSize = cfg.Archive.BatchSize
			deps.Archiver = archiver
		}
	}

	// --- Venues ---
	venues, err := wireVenues(ctx, cfg, dryRun)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if venues.close != nil {
		closers = append(closers, venues.close)
	}

	// --- Registry and ledger ---
	registry := vault.NewRegistry(vaults, logger)
	deps.Registry = registry

	led := ledger.New(ledger.Deps{
		Registry:   registry,
		Option:     venues.option,
		Lending:    venues.lending,
		Protocol:   venues.protocol,
		Bank:       venues.bank,
		Balances:   balances,
		Allowances: allowances,
		Meta:       meta,
		Audit:      deps.AuditStore,
		Bus:        deps.SignalBus,
		Logger:     logger,
	})
	if err := led.Load(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: load ledger: %w", err)
	}
	deps.Ledger = led

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wiredVenues carries the four venue interfaces plus an optional closer.
type wiredVenues struct {
	option   domain.OptionVenue
	lending  domain.LendingVenue
	protocol domain.OptionProtocol
	bank     domain.AssetBank
	close    func()
}

// wireVenues builds the venue set: in-process fakes, or live chain adapters
// bound to the configured contracts. Dry-run always uses fakes.
func wireVenues(ctx context.Context, cfg *config.Config, dryRun bool) (wiredVenues, error) {
	if dryRun || cfg.Venues.Backend == "fake" {
		f := cfg.Venues.Fake
		stableReserve, err := parseBig("stable_reserve", f.StableReserve)
		if err != nil {
			return wiredVenues{}, err
		}
		nativeReserve, err := parseBig("native_reserve", f.NativeReserve)
		if err != nil {
			return wiredVenues{}, err
		}
		poolNative, err := parseBig("pool_native", f.PoolNative)
		if err != nil {
			return wiredVenues{}, err
		}
		optionReserve, err := parseBig("option_reserve", f.OptionReserve)
		if err != nil {
			return wiredVenues{}, err
		}
		rate, err := parseBig("exchange_rate", f.ExchangeRate)
		if err != nil {
			return wiredVenues{}, err
		}
		payout, err := parseBig("payout_rate", f.PayoutRate)
		if err != nil {
			return wiredVenues{}, err
		}

		return wiredVenues{
			option:   fake.NewAMM(stableReserve, nativeReserve, poolNative, optionReserve),
			lending:  fake.NewLendingMarket(rate),
			protocol: fake.NewOptionProtocol(time.Now().UTC().Add(f.ExpiryIn.Duration), f.ExerciseWindow.Duration, payout),
			bank:     fake.NewBank(),
		}, nil
	}

	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Operator.PrivateKey,
		EncryptedKeyPath: cfg.Operator.EncryptedKeyPath,
		KeyPassword:      cfg.Operator.KeyPassword,
	})
	if err != nil {
		return wiredVenues{}, fmt.Errorf("wire: operator key: %w", err)
	}

	chainCfg := chain.Config{
		RPCURL:          cfg.Venues.Chain.RPCURL,
		ChainID:         cfg.Venues.Chain.ChainID,
		PrivateKeyHex:   key,
		StableToken:     cfg.Venues.Chain.StableToken,
		InterestToken:   cfg.Venues.Chain.InterestToken,
		OptionToken:     cfg.Venues.Chain.OptionToken,
		RewardToken:     cfg.Venues.Chain.RewardToken,
		ExchangeFactory: cfg.Venues.Chain.ExchangeFactory,
		Comptroller:     cfg.Venues.Chain.ComptrollerAddr,
	}

	client, err := chain.Dial(ctx, chainCfg)
	if err != nil {
		return wiredVenues{}, fmt.Errorf("wire: chain: %w", err)
	}

	amm, err := chain.NewAMM(ctx, client, chainCfg)
	if err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: chain amm: %w", err)
	}
	lending, err := chain.NewLending(client, chainCfg)
	if err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: chain lending: %w", err)
	}
	protocol, err := chain.NewProtocol(client, chainCfg)
	if err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: chain protocol: %w", err)
	}
	bank, err := chain.NewBank(client, chainCfg)
	if err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: chain bank: %w", err)
	}

	if err := amm.EnsureAllowance(ctx); err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: exchange allowance: %w", err)
	}
	if err := lending.EnsureAllowance(ctx); err != nil {
		client.Close()
		return wiredVenues{}, fmt.Errorf("wire: lending allowance: %w", err)
	}

	return wiredVenues{
		option:   amm,
		lending:  lending,
		protocol: protocol,
		bank:     bank,
		close:    client.Close,
	}, nil
}

func parseBig(name, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("wire: venues.fake.%s: %q is not a base-10 integer", name, s)
	}
	return n, nil
}
