package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jinsol-dev/ladder/internal/app"
	"github.com/jinsol-dev/ladder/internal/archive"
	"github.com/jinsol-dev/ladder/internal/config"
	"github.com/jinsol-dev/ladder/internal/marketdata"
	"github.com/jinsol-dev/ladder/internal/marketdata/yahoo"
	"github.com/jinsol-dev/ladder/internal/notifier"
	"github.com/jinsol-dev/ladder/internal/notifier/telegram"
	"github.com/jinsol-dev/ladder/internal/notifier/webhook"
	"github.com/jinsol-dev/ladder/internal/pricecache"
	"github.com/jinsol-dev/ladder/internal/store"
	"github.com/jinsol-dev/ladder/internal/store/sqlite"
)

// runtime bundles everything a command needs to operate the engine.
type runtime struct {
	cfg      *config.Config
	app      *app.App
	store    store.Store
	cache    pricecache.Cache
	provider marketdata.Provider
	closers  []func() error
}

func (r *runtime) close() {
	for _, c := range r.closers {
		c()
	}
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// buildRuntime assembles storage, market data, notifiers and the
// orchestrator from configuration.
func buildRuntime(cfg *config.Config, log *zap.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	// Storage: one SQLite file backs both portfolios and the daily
	// close cache; without a DSN everything stays in memory.
	var st store.Store
	var cache pricecache.Cache
	if cfg.Storage.DSN != "" {
		db, err := sqlite.Open(cfg.Storage.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		st = db
		cache = db
	} else {
		st = store.NewMemoryStore()
		cache = pricecache.NewMemory(cfg.Storage.RetentionDays)
		log.Warn("no storage dsn configured, state will not survive restart")
	}
	rt.store = st
	rt.cache = cache

	provider := yahoo.New(
		yahoo.WithBaseURL(cfg.MarketData.BaseURL),
		yahoo.WithMAPeriods(maPeriods(cfg)),
		yahoo.WithRSIPeriod(cfg.MarketData.RSIPeriod),
	)
	rt.provider = provider

	a := app.New(cfg, st, cache, provider, log)
	a.SetHistorySource(provider)

	history, err := buildHistory(cfg)
	if err != nil {
		return nil, err
	}
	if history != nil {
		a.Dispatcher().SetHistory(history)
	}

	if err := registerNotifiers(a, cfg); err != nil {
		return nil, err
	}

	rt.app = a
	return rt, nil
}

// maPeriods unions the default chart periods with every period the
// configured section strategies read.
func maPeriods(cfg *config.Config) []int {
	seen := map[int]struct{}{20: {}, 60: {}, 120: {}}
	periods := []int{20, 60, 120}
	for i := range cfg.Portfolios {
		p := cfg.Portfolios[i].ToPortfolio()
		for _, n := range p.MAPeriods() {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			periods = append(periods, n)
		}
	}
	return periods
}

func buildHistory(cfg *config.Config) (*archive.History, error) {
	switch cfg.Storage.Archive.Type {
	case "":
		return nil, nil
	case "localfs":
		backend, err := archive.NewLocalFS(cfg.Storage.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("creating archive: %w", err)
		}
		return archive.NewHistory(backend), nil
	case "s3":
		s3cfg := cfg.Storage.Archive.S3
		backend, err := archive.NewS3(archive.S3Config{
			Bucket:    s3cfg.Bucket,
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Prefix:    s3cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("creating s3 archive: %w", err)
		}
		return archive.NewHistory(backend), nil
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Storage.Archive.Type)
	}
}

func notifierConfig(nc config.NotifierConfig) notifier.Config {
	params := map[string]any{}
	if nc.BotToken != "" {
		params["bot_token"] = nc.BotToken
	}
	if nc.ChatID != "" {
		params["chat_id"] = nc.ChatID
	}
	if nc.URL != "" {
		params["url"] = nc.URL
	}
	if len(nc.Headers) > 0 {
		params["headers"] = nc.Headers
	}
	return notifier.Config{Params: params}
}

func registerNotifiers(a *app.App, cfg *config.Config) error {
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		switch name {
		case "telegram":
			n := telegram.New(nc.BotToken, nc.ChatID)
			if err := n.Init(notifierConfig(nc)); err != nil {
				return err
			}
			if err := a.RegisterNotifier(n); err != nil {
				return err
			}
		case "webhook":
			n := webhook.New(nc.URL, nc.Headers)
			if err := n.Init(notifierConfig(nc)); err != nil {
				return err
			}
			if err := a.RegisterNotifier(n); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown notifier %q", name)
		}
	}
	return nil
}
