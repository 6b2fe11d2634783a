package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/FranksOps/leadscout/internal/cache"
	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/enrich"
	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/scraper"
	"github.com/FranksOps/leadscout/internal/serp"
	"github.com/FranksOps/leadscout/internal/settings"
	"github.com/FranksOps/leadscout/internal/source"
	"github.com/FranksOps/leadscout/internal/storage"
	"github.com/FranksOps/leadscout/internal/storage/csvbackend"
	"github.com/FranksOps/leadscout/internal/storage/jsonbackend"
	"github.com/FranksOps/leadscout/internal/storage/postgres"
	"github.com/FranksOps/leadscout/internal/storage/sqlite"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
	"github.com/FranksOps/leadscout/pkg/useragent"
	"github.com/redis/go-redis/v9"
)

// app is everything a command needs, built once from the loaded config.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	fetcher  *scraper.Fetcher
	pipeline *pipeline.Pipeline
	settings settings.Store
	// store is nil when storage.driver is none.
	store storage.Backend

	closers []func() error
}

// Close releases the store and redis connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var rdb redis.UniversalClient
	if usesRedis(cfg) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rdb = client
		a.closers = append(a.closers, client.Close)
	}

	fetcher, err := newFetcher(cfg.HTTP, rdb, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.fetcher = fetcher
	a.settings = newSettings(cfg.Settings, rdb)

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if store != nil {
		a.store = store
		a.closers = append(a.closers, store.Close)
	}

	a.pipeline = pipeline.New(pipeline.Config{
		Adapters:    newAdapters(cfg, fetcher, logger),
		Placeholder: source.NewPlaceholder(cfg.Apollo.SignupURL),
		Credential:  cfg.Apollo.APIKey,
	}, logger)
	return a, nil
}

// credential returns the Apollo key from the settings store, or "" to fall
// back to the configured one.
func (a *app) credential(ctx context.Context) string {
	return settings.Lookup(ctx, a.settings, settings.KeyApolloAPIKey)
}

func usesRedis(cfg config.Config) bool {
	return strings.EqualFold(cfg.Settings.Driver, "redis") || strings.EqualFold(cfg.HTTP.Cache, "redis")
}

func newFetcher(cfg config.HTTPConfig, rdb redis.UniversalClient, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	var pool *proxy.Pool
	if len(cfg.Proxies) > 0 || cfg.ProxyFile != "" {
		pool = proxy.NewPool(proxy.Config{})
		if err := pool.Add(cfg.Proxies...); err != nil {
			return nil, err
		}
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, err
			}
		}
	}

	var c cache.Cache
	switch strings.ToLower(cfg.Cache) {
	case "memory":
		c = cache.NewMemoryCache(cfg.CacheTTL, 2*cfg.CacheTTL)
	case "redis":
		c = cache.NewRedisCache(rdb, cfg.CacheTTL)
	}

	return scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: true,
		MaxBodyBytes: cfg.MaxBodyBytes,
		ProxyPool:    pool,
		UAPool:       useragent.NewPool(cfg.UserAgents, useragent.Rotation(cfg.UARotation)),
		Fingerprint:  profile,
		Limiter:      ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Burst, cfg.Jitter),
		Cache:        c,
		CacheTTL:     cfg.CacheTTL,
		Logger:       logger,
	})
}

func sourceConfig(c config.SourceConfig) source.Config {
	return source.Config{BaseURL: c.BaseURL, Timeout: c.Timeout}
}

func newAdapters(cfg config.Config, f *scraper.Fetcher, logger *slog.Logger) []source.Adapter {
	src := cfg.Sources

	google := source.GoogleConfig{Config: sourceConfig(src.Google.SourceConfig)}
	if src.Google.EnrichContacts {
		google.Finder = enrich.NewFinder(f, enrich.Config{
			MaxPages:      src.Google.EnrichPages,
			RespectRobots: cfg.HTTP.RespectRobots,
		}, logger)
	}
	provider := &serp.GoogleScrape{Fetcher: f, BaseURL: src.Google.BaseURL, Logger: logger}

	return []source.Adapter{
		source.NewReddit(f, sourceConfig(src.Reddit.SourceConfig), src.Reddit.Subreddits, logger),
		source.NewFiverr(f, sourceConfig(src.Fiverr), logger),
		source.NewJobBoard(f, sourceConfig(src.GoZambiaJobs), logger),
		source.NewGoogle(provider, google, logger),
		source.NewApollo(f, sourceConfig(src.Apollo), logger),
	}
}

func newSettings(cfg config.SettingsConfig, rdb redis.UniversalClient) settings.Store {
	if strings.EqualFold(cfg.Driver, "redis") && rdb != nil {
		return settings.NewRedisStore(rdb, cfg.Key)
	}
	return settings.NewMemoryStore(nil)
}

// newStore opens the configured lead store. It returns nil for "none".
func newStore(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "postgres":
		return postgres.New(ctx, cfg.DSN)
	case "csv":
		return csvbackend.New(cfg.DSN)
	case "json":
		return jsonbackend.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// newLogger builds the process logger. verbose forces debug.
func newLogger(cfg config.LogConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
