// Package app wires config, logging, transport, storage and the poster
// pipeline together for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"channelposter/internal/catalog"
	"channelposter/internal/config"
	"channelposter/internal/poster"
	"channelposter/internal/runtime/supervisor"
	"channelposter/internal/scheduler"
	"channelposter/internal/storage"
	"channelposter/internal/transport"
	"channelposter/internal/transport/telegram/adapter"
	logx "channelposter/pkg/logx"
	"channelposter/pkg/systemd"
)

// Mode selects which dependencies New sets up.
type Mode int

const (
	// ModeInspect needs the catalog only (catalog, preview).
	ModeInspect Mode = iota
	// ModeHistory needs the publication store.
	ModeHistory
	// ModePublish needs everything: Telegram, store and catalog.
	ModePublish
)

type Options struct {
	// Rand overrides the selection/formatting random source.
	Rand catalog.Rand
	// Sender overrides the Telegram adapter.
	Sender transport.Sender
}

type App struct {
	cfg  config.Config
	mode Mode

	log  logx.Logger
	logs *logx.Service

	sender transport.Sender
	store  storage.Store
	rng    catalog.Rand
}

// ConfigError marks failures that happen before anything is sent.
type ConfigError struct{ Err error }

func (e *ConfigError) Error() string { return "configuration: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// New validates cfg and builds the dependencies mode needs. Every error it
// returns is a *ConfigError.
func New(cfg config.Config, mode Mode, opts Options) (*App, error) {
	validate := cfg.Validate
	if mode == ModePublish {
		validate = cfg.ValidatePublish
	}
	if err := validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	bootLog := logx.NewConsole(cfg.Logging.Level)

	sender := opts.Sender
	if mode == ModePublish && sender == nil {
		// No getMe handshake: the first Bot API call is the send itself, so
		// network failures surface as SendFailed.
		ad, err := adapter.New(adapter.Config{
			Token:   cfg.Telegram.Token,
			URL:     cfg.Telegram.APIURL,
			Offline: true,
			Timeout: cfg.SendTimeout(),
		}, bootLog.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		sender = ad
	}

	// The operator-chat log sink reuses the publishing adapter.
	logSvc, log := logx.New(mapLogConfig(cfg), sender)

	a := &App{
		cfg:    cfg,
		mode:   mode,
		log:    log.With(logx.String("comp", "app")),
		logs:   logSvc,
		sender: sender,
		rng:    opts.Rand,
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	if mode != ModeInspect {
		sc, enabled, err := mapStorageConfig(cfg)
		if err != nil {
			_ = logSvc.Close()
			return nil, &ConfigError{Err: err}
		}
		if enabled {
			st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
			if err != nil {
				_ = logSvc.Close()
				return nil, &ConfigError{Err: fmt.Errorf("open storage: %w", err)}
			}
			a.store = st
			a.log.Debug("storage enabled", logx.String("driver", sc.Driver))
		}
	}
	return a, nil
}

func (a *App) Config() config.Config { return a.cfg }
func (a *App) Logger() logx.Logger   { return a.log }

// Close releases the store and flushes logs.
func (a *App) Close() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logs != nil {
		err = errors.Join(err, a.logs.Close())
	}
	return err
}

// Poster builds the pipeline reading the catalog from src (nil means the
// configured catalog file, loaded on every run).
func (a *App) Poster(src poster.CatalogSource) (*poster.Poster, error) {
	if src == nil {
		src = poster.FileCatalog(a.cfg.Posts.File)
	}
	return poster.New(a.cfg, poster.Deps{
		Catalog: src,
		Sender:  a.sender,
		Store:   a.store,
		Log:     a.log.With(logx.String("comp", "poster")),
		Rand:    a.rng,
	})
}

// Publish runs the pipeline once.
func (a *App) Publish(ctx context.Context) poster.Outcome {
	p, err := a.Poster(nil)
	if err != nil {
		return poster.Failed(poster.ConfigFailed, err)
	}
	return p.Publish(ctx)
}

// Preview selects and formats a post without sending or recording it.
func (a *App) Preview() (catalog.Selection, string, error) {
	p, err := a.Poster(nil)
	if err != nil {
		return catalog.Selection{}, "", err
	}
	return p.Prepare()
}

// Catalog loads the configured catalog.
func (a *App) Catalog() (*catalog.Catalog, error) {
	return catalog.Load(a.cfg.Posts.File)
}

// History lists recorded publications.
func (a *App) History(ctx context.Context) ([]storage.Entry, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.List(ctx)
}

// RunScheduled publishes on the configured schedule until ctx is done.
// Failed runs are logged and do not stop the schedule.
func (a *App) RunScheduled(ctx context.Context) error {
	sched, err := scheduler.New(a.cfg.Schedule.Spec, a.cfg.Location(), a.log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("schedule: %w", err)}
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	notifier := systemd.NewNotifier(a.log.With(logx.String("comp", "systemd")))

	src := poster.FileCatalog(a.cfg.Posts.File)
	if a.cfg.Schedule.WatchCatalog {
		w, err := catalog.NewWatcher(a.cfg.Posts.File, a.log.With(logx.String("comp", "catalog")))
		if err != nil {
			sup.Cancel()
			return &ConfigError{Err: err}
		}
		src = func() (*catalog.Catalog, error) { return w.Current(), nil }
		sup.GoRestart("catalog-watch", time.Second, time.Minute, w.Run)
	}

	p, err := a.Poster(src)
	if err != nil {
		sup.Cancel()
		return &ConfigError{Err: err}
	}

	sup.Go("systemd-watchdog", notifier.Watchdog)
	sup.Go("scheduler", func(ctx context.Context) error {
		return sched.Run(ctx, func(ctx context.Context) {
			out := p.Publish(ctx)
			if !out.OK() {
				a.log.Error("scheduled publish failed", logx.String("outcome", out.Kind.String()), logx.Err(out.Err))
			}
			notifier.Status(fmt.Sprintf("last run %s, next %s", out.Kind, sched.Next(time.Now()).Format(time.RFC3339)))
		})
	})

	notifier.Ready()
	notifier.Status("next run " + sched.Next(time.Now()).Format(time.RFC3339))

	<-sup.Context().Done()
	notifier.Stopping()
	if err := sup.Wait(context.Background()); err != nil {
		a.log.Warn("background task failed", logx.Err(err))
	}
	return nil
}
