package cmd

import (
	"context"
	"fmt"

	"calltracker/config"
	"calltracker/pkg/cache"
	"calltracker/pkg/kv"
	"calltracker/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	kvStore   kv.Store
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	kvStore, err := newKVStore(cfg)
	if err != nil {
		log.Error("Failed to open KV store", zap.Error(err))
		return nil, err
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		kvStore:   kvStore,
	}, nil
}

func newKVStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.KV.Driver {
	case "memory":
		return kv.NewMemory(), nil
	case "sqlite":
		return kv.NewSQLite(cfg.KV.Path)
	default:
		return nil, fmt.Errorf("unknown kv driver %q", cfg.KV.Driver)
	}
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.kvStore != nil {
		return d.kvStore.Close()
	}
	return nil
}
