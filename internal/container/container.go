package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"anpr-client/internal/config"
	"anpr-client/internal/db"
	"anpr-client/internal/detector"
	"anpr-client/internal/logger"
	"anpr-client/internal/repository"
	"anpr-client/internal/service"
	"anpr-client/internal/storage"
)

// Options come from the CLI's persistent flags.
type Options struct {
	ConfigFile string
	LogLevel   string
}

type Container struct {
	Config           *config.Config
	Log              zerolog.Logger
	History          *service.HistoryStore
	DetectionService *service.DetectionService

	closers []func() error
}

// Build loads configuration, opens storage and loads the persisted history
// once, the way a page load would.
func Build(ctx context.Context, opts Options) (*Container, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return New(ctx, cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty))
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	store, err := c.openStore(cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	store = storage.WithQuota(store, cfg.Storage.QuotaBytes)

	c.History = service.NewHistoryStore(store, cfg.Storage.Key, cfg.History.Capacity, log)
	loaded := c.History.Load(ctx)

	det := detector.NewClient(cfg.Detector.URL, cfg.Detector.Timeout, log)
	c.DetectionService = service.NewDetectionService(det, service.NewResultNormalizer(), c.History, log)

	log.Debug().
		Str("storage", cfg.Storage.Driver).
		Int("history_len", len(loaded)).
		Str("history_state", c.History.State().String()).
		Msg("client initialized")

	return c, nil
}

func (c *Container) openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(afero.NewOsFs(), cfg.Storage.Dir)
	case db.DriverSQLite:
		if dir := filepath.Dir(cfg.Database.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database dir: %w", err)
			}
		}
		return c.openRepository(db.DriverSQLite, cfg.Database.Path)
	case db.DriverPostgres:
		return c.openRepository(db.DriverPostgres, cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (c *Container) openRepository(driver, dsn string) (storage.Store, error) {
	conn, err := db.Open(driver, dsn, c.Log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, sqlDB.Close)
	return repository.NewStateRepository(conn), nil
}

func (c *Container) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		errs = append(errs, closeFn())
	}
	c.closers = nil
	return errors.Join(errs...)
}
