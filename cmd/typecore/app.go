package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/logandonley/typecore/internal/config"
	"github.com/logandonley/typecore/internal/logger"
	"github.com/logandonley/typecore/internal/platform"
	redisstore "github.com/logandonley/typecore/internal/store/redis"
	"github.com/logandonley/typecore/pkg/fm"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	manager *fm.DefaultManager
	closers []func() error
}

func newApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		if !logger.ValidLevel(logLevel) {
			return nil, fmt.Errorf("invalid log level %q", logLevel)
		}
		cfg.LogLevel = logLevel
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	if cfg.LogLevel == "debug" {
		log.Debugf("cfg: %+v", cfg.Redacted())
	}

	a := &app{cfg: cfg, log: log}

	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return nil, err
	}

	bridge, err := platform.New(platform.Options{Logger: log})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initializing activation bridge: %w", err)
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	manager, err := fm.NewManager(fm.Options{
		Catalog:    catalog,
		Bridge:     bridge,
		CacheDir:   cfg.CacheDir,
		HTTPClient: client,
		Logger:     log,
		GoogleOptions: []fm.GoogleFontsOption{
			fm.WithGoogleEndpoint(cfg.Google.Endpoint),
			fm.WithGoogleSort(cfg.Google.Sort),
		},
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("initializing font manager: %w", err)
	}

	if err := manager.RegisterDirectory(fm.NewFontsource(client, cfg.Fontsource.Endpoint, cfg.Fontsource.CDN)); err != nil {
		a.close()
		return nil, fmt.Errorf("registering Fontsource directory: %w", err)
	}

	a.manager = manager
	return a, nil
}

func (a *app) openCatalog(ctx context.Context) (fm.Catalog, error) {
	switch a.cfg.Catalog.Backend {
	case config.BackendRedis:
		r := a.cfg.Catalog.Redis
		client, err := redisstore.Connect(ctx, redisstore.ConnectOptions{
			Addr:           r.Addr,
			User:           r.Username,
			Password:       r.Password,
			DB:             r.DB,
			DialTimeout:    r.DialTimeout,
			ConnectTimeout: r.ConnectTimeout,
			RetryInterval:  r.RetryInterval,
			MaxWait:        r.MaxWait,
			PingTimeout:    r.PingTimeout,
			WarnThreshold:  3,
		}, a.log)
		if err != nil {
			return nil, fmt.Errorf("connecting to catalog: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return redisstore.NewCatalog(client), nil
	default:
		catalog, err := fm.OpenFileCatalog(a.cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("opening catalog: %w", err)
		}
		a.log.Debug("using file catalog", logger.Path(a.cfg.Catalog.Path))
		return catalog, nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("closing resource", logger.Error(err))
		}
	}
	_ = a.log.Sync()
}
