package cli

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/piercedata/acsdash/internal/config"
	"github.com/piercedata/acsdash/pkg/cache"
	"github.com/piercedata/acsdash/pkg/census"
	"github.com/piercedata/acsdash/pkg/errors"
	"github.com/piercedata/acsdash/pkg/history"
	"github.com/piercedata/acsdash/pkg/pipeline"
)

// app bundles the wired dependencies shared by the data commands: the loaded
// configuration, the census client with its response cache, the run executor,
// and the history store.
type app struct {
	cfg       config.Config
	logger    *log.Logger
	responses cache.Cache
	history   history.Store
	client    *census.Client
	runner    *pipeline.Runner
}

// newApp loads configuration and wires the backends it selects.
func newApp(ctx context.Context, cfgPath string) (*app, error) {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	responses, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	store, err := openHistory(ctx, cfg.History)
	if err != nil {
		responses.Close()
		return nil, err
	}

	client := census.New(census.Config{
		BaseURL: cfg.Census.BaseURL,
		APIKey:  cfg.Census.APIKey,
		Year:    cfg.Census.Year,
		State:   cfg.Census.State,
		County:  cfg.Census.County,
	}, responses, cfg.Cache.TTL.Std(), logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		responses: responses,
		history:   store,
		client:    client,
		runner:    pipeline.NewRunner(client, logger, store),
	}, nil
}

// close releases backend resources. Errors are logged, not returned; close
// runs on every command exit path.
func (a *app) close() {
	if err := a.responses.Close(); err != nil {
		a.logger.Warn("closing response cache", "error", err)
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing history store", "error", err)
		}
	}
}

func openCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case "memory":
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = cache.DefaultCapacity
		}
		return cache.NewMemoryCache(capacity), nil
	case "file":
		dir := cfg.Dir
		if dir == "" {
			var err error
			if dir, err = cache.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Backend)
	}
}

func openHistory(ctx context.Context, cfg config.History) (history.Store, error) {
	switch cfg.Backend {
	case "file":
		return history.NewFileStore(cfg.Dir)
	case "mongo":
		return history.NewMongoStore(ctx, history.MongoConfig{URI: cfg.MongoURI})
	case "none":
		return nil, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown history backend %q", cfg.Backend)
	}
}
