// Package app wires the daemon together: config, logging, storage, the
// upstream API client, the diff engine, the dispatcher, and the poll loop.
package app

import (
	"context"
	"fmt"
	"time"

	"pucktrack/internal/audit"
	"pucktrack/internal/config"
	"pucktrack/internal/diff"
	"pucktrack/internal/dispatch"
	"pucktrack/internal/live"
	"pucktrack/internal/nhl"
	"pucktrack/internal/observability/pprof"
	"pucktrack/internal/poller"
	"pucktrack/internal/runtime/supervisor"
	"pucktrack/internal/store"
	"pucktrack/internal/teamcolors"
	logx "pucktrack/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	// bootStorage is the storage section the store was opened with; a
	// reload that changes it only takes effect after a restart.
	bootStorage config.StorageConfig

	log  logx.Logger
	logs *logx.Service

	store  *store.Store
	bus    audit.Bus
	holder *live.Holder

	client  *nhl.Client
	cache   *nhl.Cache
	fetcher *nhl.Fetcher

	engine *diff.Engine
	disp   *dispatch.Service
	poll   *poller.Poller
	pprof  *pprof.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	storeCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(storeCfg, log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}

	clientCfg, err := mapClientConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := nhl.NewClient(clientCfg, log.With(logx.String("comp", "nhl")))

	staticTTL, liveTTL, err := mapCacheTTLs(cfg)
	if err != nil {
		return nil, err
	}
	cache := nhl.NewCache(staticTTL, liveTTL)
	fetcher := nhl.NewFetcher(client, cache)

	holder := live.NewHolder()
	bus := audit.New()

	dispCfg, err := mapDispatchConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := dispatch.New(dispCfg, st, teamcolors.NewStatic(), bus,
		log.With(logx.String("comp", "dispatch")))

	engine := diff.NewEngine(st, st, disp, mapPowerPlayKey(cfg),
		log.With(logx.String("comp", "diff")))

	pollCfg, err := mapPollerConfig(cfg)
	if err != nil {
		return nil, err
	}
	poll := poller.New(pollCfg, fetcher, holder, engine, st,
		log.With(logx.String("comp", "poller")))

	pprofSvc := pprof.New(mapPprofConfig(cfg), log.With(logx.String("comp", "pprof")))

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		bootStorage: cfg.Storage,
		log:         log,
		logs:        logSvc,
		store:       st,
		bus:         bus,
		holder:      holder,
		client:      client,
		cache:       cache,
		fetcher:     fetcher,
		engine:      engine,
		disp:        disp,
		poll:        poll,
		pprof:       pprofSvc,
	}, nil
}

// Holder exposes the watched-game snapshot holder.
func (a *App) Holder() *live.Holder { return a.holder }

// Store exposes rule CRUD and delivery history.
func (a *App) Store() *store.Store { return a.store }

// Done is closed when the app run context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true))

	// Transactional hot-reload: a file that fails validation is never
	// committed or published.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := mapClientConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapCacheTTLs(cfg); err != nil {
			return err
		}
		if _, err := mapPollerConfig(cfg); err != nil {
			return err
		}
		if _, err := mapDispatchConfig(cfg); err != nil {
			return err
		}
		if _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if cfg.Dispatch.MaxAttempts < 0 {
			return fmt.Errorf("dispatch.max_attempts must be >= 0")
		}
		return nil
	})

	runCtx := a.sup.Context()

	a.disp.Start(runCtx)
	a.poll.Start(runCtx)
	a.pprof.Start(runCtx)

	// Delivery audit trail at debug level; the persistent record is the
	// webhook_logs table.
	deliveries, unsub := a.bus.Subscribe(128)
	a.sup.Go0("audit.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-deliveries:
				if !ok {
					return
				}
				a.log.Debug("delivery",
					logx.Int64("rule_id", e.RuleID),
					logx.String("event_type", e.EventType),
					logx.Int64("game_id", e.GameID),
					logx.Bool("success", e.Success),
					logx.Int("status", e.HTTPStatus),
					logx.Int("attempts", e.Attempts))
			}
		}
	})

	// Hot-reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts; only the newest config matters.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyReload pushes a validated config into the live services. Storage
// changes need a restart; everything else applies in place.
func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if dispCfg, err := mapDispatchConfig(cfg); err != nil {
		a.log.Warn("invalid dispatch config; keeping previous", logx.Err(err))
	} else {
		a.disp.Apply(dispCfg)
	}

	if pollCfg, err := mapPollerConfig(cfg); err != nil {
		a.log.Warn("invalid poller config; keeping previous", logx.Err(err))
	} else {
		a.poll.Apply(pollCfg)
	}

	a.pprof.Reconfigure(ctx, mapPprofConfig(cfg))

	if cfg.Storage != a.bootStorage {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context)) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			fn(stepCtx)
		}()
		select {
		case <-done:
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached", logx.String("name", name))
		}
	}

	step("poller", 5*time.Second, func(c context.Context) { a.poll.Stop(c) })
	step("dispatch", 10*time.Second, func(c context.Context) { a.disp.Stop(c) })
	step("pprof", 2*time.Second, func(c context.Context) { a.pprof.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) { _ = a.sup.Stop(c) })

	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}

	a.log.Info("stopped")
	_ = a.logs.Close()
	return nil
}
