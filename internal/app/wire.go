package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "arbwatch/internal/blob/s3"
	cachemem "arbwatch/internal/cache/memory"
	"arbwatch/internal/cache/redis"
	"arbwatch/internal/config"
	"arbwatch/internal/domain"
	"arbwatch/internal/notify"
	"arbwatch/internal/quotes"
	"arbwatch/internal/store/memory"
	"arbwatch/internal/store/postgres"
)

// Dependencies bundles everything the operating modes need. Constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	VenueStore       domain.VenueStore
	PairStore        domain.PairStore
	OpportunityStore domain.OpportunityStore
	TransactionStore domain.TransactionStore
	SettingsStore    domain.SettingsStore

	// Cache and messaging
	QuoteCache domain.QuoteCache
	SignalBus  domain.SignalBus

	// Quote intake
	Source domain.QuoteSource
	Feeds  []*quotes.VenueFeed

	// Archival
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs concrete implementations from the configuration. Postgres
// and Redis are optional: with no DSN the stores are in-memory and with no
// Redis address the cache and bus are in-process.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	retention := cfg.Detector.RetentionWindow.Duration

	// --- Stores ---
	if cfg.UsePostgres() {
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
		deps.VenueStore = postgres.NewVenueStore(pool)
		deps.PairStore = postgres.NewPairStore(pool)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool, retention, nil)
		deps.TransactionStore = postgres.NewTransactionStore(pool)
		deps.SettingsStore = postgres.NewSettingsStore(pool)
	} else {
		logger.InfoContext(ctx, "no database configured, using in-memory stores")
		deps.VenueStore = memory.NewVenueStore()
		deps.PairStore = memory.NewPairStore()
		deps.OpportunityStore = memory.NewOpportunityStore(retention, nil)
		deps.TransactionStore = memory.NewTransactionStore()
		deps.SettingsStore = memory.NewSettingsStore(nil)
	}

	if err := seedCatalog(ctx, cfg, deps); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed catalog: %w", err)
	}

	// --- Cache and signal bus ---
	if cfg.UseRedis() {
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

		deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Detector.MaxQuoteAge.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	} else {
		logger.InfoContext(ctx, "no redis configured, using in-process cache and bus")
		deps.QuoteCache = cachemem.NewQuoteCache()
		deps.SignalBus = cachemem.NewSignalBus()
	}

	// --- Quote source ---
	if err := wireSource(cfg, deps, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- S3 archiver ---
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
		deps.Archiver = s3blob.NewArchiver(
			deps.TransactionStore,
			s3blob.NewWriter(s3Client),
			time.Duration(cfg.Archive.AfterDays)*24*time.Hour,
			cfg.Archive.Interval.Duration,
			nil,
			logger,
		)
	}

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

// seedCatalog upserts the configured venues and pairs so the stores always
// reflect the deployment's catalog.
func seedCatalog(ctx context.Context, cfg *config.Config, deps *Dependencies) error {
	now := time.Now().UTC()
	for _, v := range cfg.Venues {
		venue := domain.Venue{ID: v.ID, Name: v.Name, Active: v.Active, CreatedAt: now}
		if err := deps.VenueStore.Upsert(ctx, venue); err != nil {
			return fmt.Errorf("upsert venue %s: %w", v.ID, err)
		}
	}
	for _, p := range cfg.Pairs {
		pair := domain.TradingPair{
			ID:          p.ID,
			BaseSymbol:  p.Base,
			QuoteSymbol: p.Quote,
			DisplayName: p.Display,
			Active:      p.Active,
			CreatedAt:   now,
		}
		if err := deps.PairStore.Upsert(ctx, pair); err != nil {
			return fmt.Errorf("upsert pair %s: %w", p.ID, err)
		}
	}
	return nil
}

// wireSource selects the quote source. The cache source additionally builds
// one streaming feed per venue with a ws_url; those feeds are started by the
// modes that run detection.
func wireSource(cfg *config.Config, deps *Dependencies, logger *slog.Logger) error {
	activeVenueIDs := make([]string, 0, len(cfg.Venues))
	for _, v := range cfg.Venues {
		if v.Active {
			activeVenueIDs = append(activeVenueIDs, v.ID)
		}
	}

	symbols := make([]string, 0, len(cfg.Pairs))
	seen := make(map[string]bool)
	for _, p := range cfg.Pairs {
		if p.Active && !seen[p.Base] {
			seen[p.Base] = true
			symbols = append(symbols, p.Base)
		}
	}

	switch cfg.Detector.Source {
	case "synthetic":
		deps.Source = quotes.NewSyntheticSource(activeVenueIDs, time.Now().UnixNano(), nil)

	case "rest":
		endpoints := make([]quotes.VenueEndpoint, 0, len(cfg.Venues))
		for _, v := range cfg.Venues {
			if v.Active && v.TickerURL != "" {
				endpoints = append(endpoints, quotes.VenueEndpoint{
					VenueID:   v.ID,
					TickerURL: v.TickerURL,
				})
			}
		}
		deps.Source = quotes.NewRESTSource(endpoints, nil, nil, logger)

	case "cache":
		deps.Source = quotes.NewCacheSource(
			deps.QuoteCache, activeVenueIDs, cfg.Detector.MaxQuoteAge.Duration, nil)
		for _, v := range cfg.Venues {
			if v.Active && v.WSURL != "" {
				deps.Feeds = append(deps.Feeds,
					quotes.NewVenueFeed(v.ID, v.WSURL, symbols, deps.QuoteCache, nil, logger))
			}
		}

	default:
		return fmt.Errorf("wire: unknown quote source %q", cfg.Detector.Source)
	}
	return nil
}
