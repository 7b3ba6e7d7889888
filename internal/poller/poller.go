// Package poller drives the adaptive fetch loop: fast cadence while a game
// is in progress, slow cadence otherwise, plus the periodic schedule scan
// and retention sweeps.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pucktrack/internal/live"
	"pucktrack/internal/nhl"
	logx "pucktrack/pkg/logx"
)

// Config holds resolved poll cadences and retention windows.
type Config struct {
	LiveInterval  time.Duration
	IdleInterval  time.Duration
	ErrorCooldown time.Duration

	ScanInterval      time.Duration
	RetentionInterval time.Duration

	ProcessedRetention time.Duration
	LogRetention       time.Duration
}

func (c *Config) applyDefaults() {
	if c.LiveInterval <= 0 {
		c.LiveInterval = 3 * time.Second
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = 30 * time.Second
	}
	if c.ErrorCooldown <= 0 {
		c.ErrorCooldown = 5 * time.Second
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = time.Minute
	}
	if c.RetentionInterval <= 0 {
		c.RetentionInterval = 6 * time.Hour
	}
	if c.ProcessedRetention <= 0 {
		c.ProcessedRetention = 7 * 24 * time.Hour
	}
	if c.LogRetention <= 0 {
		c.LogRetention = 14 * 24 * time.Hour
	}
}

// Processor consumes one snapshot per poll tick.
type Processor interface {
	Process(ctx context.Context, snap *nhl.Snapshot) error
}

// Store is the persistence surface the poller needs: which teams to scan
// for, and the retention sweeps.
type Store interface {
	SubscribedTeams(ctx context.Context) ([]string, error)
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Poller owns the poll loop goroutine and the cron-driven scan/retention
// jobs.
//
// Game priority per tick: the watched game (full snapshot), then every
// background-live game (landing + play-by-play only). A game polled to a
// terminal state gets exactly one final diff pass and is then suppressed
// until the tracker restarts.
type Poller struct {
	api    nhl.API
	holder *live.Holder
	proc   Processor
	store  Store
	log    logx.Logger

	mu  sync.Mutex
	cfg Config

	// bgLive is the set of unwatched games currently in progress for a
	// subscribed team. finished suppresses re-polling after the final diff.
	bgLive   map[int64]string
	finished map[int64]struct{}

	c       *cron.Cron
	loopCtx context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config, api nhl.API, holder *live.Holder, proc Processor, store Store, log logx.Logger) *Poller {
	cfg.applyDefaults()
	return &Poller{
		api:      api,
		holder:   holder,
		proc:     proc,
		store:    store,
		log:      log,
		cfg:      cfg,
		bgLive:   make(map[int64]string),
		finished: make(map[int64]struct{}),
	}
}

// Apply updates cadences. The running loop picks them up on its next tick;
// cron jobs keep their registration interval until restart.
func (p *Poller) Apply(cfg Config) {
	cfg.applyDefaults()
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

// Start launches the poll loop and schedules the scan and retention jobs.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}
	p.loopCtx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	p.c = cron.New()
	p.c.Schedule(cron.Every(p.cfg.ScanInterval), cron.FuncJob(func() {
		p.scanSchedules(p.loopCtx)
	}))
	p.c.Schedule(cron.Every(p.cfg.RetentionInterval), cron.FuncJob(func() {
		p.sweepRetention(p.loopCtx)
	}))
	p.c.Start()

	go p.loop(p.loopCtx)

	// Prime the live set so the first tick already knows about games in
	// progress instead of waiting a full scan interval.
	go p.scanSchedules(p.loopCtx)

	p.log.Info("poller started",
		logx.Duration("live_interval", p.cfg.LiveInterval),
		logx.Duration("idle_interval", p.cfg.IdleInterval),
		logx.Duration("scan_interval", p.cfg.ScanInterval))
}

// Stop halts the loop and waits for the in-flight tick to finish.
func (p *Poller) Stop(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	cancel := p.cancel
	c := p.c
	p.done = nil
	p.cancel = nil
	p.c = nil
	p.mu.Unlock()

	if done == nil {
		return
	}
	if c != nil {
		<-c.Stop().Done()
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
	}
	p.log.Info("poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		interval := p.tick(ctx)
		if ctx.Err() != nil {
			return
		}
		timer.Reset(interval)
	}
}

// tick polls every game of interest once and returns the delay before the
// next tick.
func (p *Poller) tick(ctx context.Context) time.Duration {
	p.mu.Lock()
	cfg := p.cfg
	games := make(map[int64]string, len(p.bgLive))
	for id, team := range p.bgLive {
		games[id] = team
	}
	p.mu.Unlock()

	anyLive := false
	failed := false
	watchedActive := false

	if gameID, ok := p.holder.Watched(); ok {
		delete(games, gameID) // watched wins over background
		if !p.isFinished(gameID) {
			inProgress, err := p.pollWatched(ctx, gameID)
			if err != nil {
				failed = true
				p.log.Warn("watched game poll failed", logx.Int64("game_id", gameID), logx.Err(err))
			}
			anyLive = anyLive || inProgress
			// A game that just reached its terminal state was diffed one
			// last time above and no longer holds the fast cadence.
			watchedActive = !p.isFinished(gameID)
		}
	}

	for gameID, team := range games {
		inProgress, err := p.pollBackground(ctx, gameID)
		if err != nil {
			failed = true
			p.log.Warn("background poll failed",
				logx.Int64("game_id", gameID), logx.String("team", team), logx.Err(err))
			continue
		}
		anyLive = anyLive || inProgress
	}

	switch {
	case failed:
		return cfg.ErrorCooldown
	case anyLive || watchedActive:
		return cfg.LiveInterval
	default:
		return cfg.IdleInterval
	}
}

// pollWatched fetches the full snapshot (landing, play-by-play, boxscore,
// shift chart) concurrently, publishes it, and runs the diff.
func (p *Poller) pollWatched(ctx context.Context, gameID int64) (liveNow bool, err error) {
	p.api.InvalidateGame(gameID)

	snap := &nhl.Snapshot{GameID: gameID}
	var wg sync.WaitGroup
	errs := make([]error, 4)

	wg.Add(4)
	go func() { defer wg.Done(); snap.Landing, errs[0] = p.api.GameLanding(ctx, gameID) }()
	go func() { defer wg.Done(); snap.PlayByPlay, errs[1] = p.api.PlayByPlay(ctx, gameID) }()
	go func() { defer wg.Done(); snap.Boxscore, errs[2] = p.api.Boxscore(ctx, gameID) }()
	go func() { defer wg.Done(); snap.Shifts, errs[3] = p.api.ShiftChart(ctx, gameID) }()
	wg.Wait()

	// Landing and play-by-play are required; boxscore and shifts are
	// enrichment and may lag (the shift feed 404s early in a game).
	if errs[0] != nil {
		return false, errs[0]
	}
	if errs[1] != nil {
		return false, errs[1]
	}
	if errs[2] != nil {
		p.log.Debug("boxscore unavailable", logx.Int64("game_id", gameID), logx.Err(errs[2]))
		snap.Boxscore = nil
	}
	if errs[3] != nil {
		p.log.Debug("shift chart unavailable", logx.Int64("game_id", gameID), logx.Err(errs[3]))
		snap.Shifts = nil
	}

	p.holder.Publish(snap)
	return p.processSnapshot(ctx, snap)
}

// pollBackground fetches the minimal snapshot for an unwatched live game.
func (p *Poller) pollBackground(ctx context.Context, gameID int64) (liveNow bool, err error) {
	p.api.InvalidateGame(gameID)

	snap := &nhl.Snapshot{GameID: gameID}
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() { defer wg.Done(); snap.Landing, errs[0] = p.api.GameLanding(ctx, gameID) }()
	go func() { defer wg.Done(); snap.PlayByPlay, errs[1] = p.api.PlayByPlay(ctx, gameID) }()
	wg.Wait()

	if errs[0] != nil {
		return false, errs[0]
	}
	if errs[1] != nil {
		return false, errs[1]
	}
	return p.processSnapshot(ctx, snap)
}

// processSnapshot runs the diff and handles the transition into a terminal
// state: the terminal snapshot still gets one diff pass (it carries the
// game-end and result events), after which the game is suppressed.
func (p *Poller) processSnapshot(ctx context.Context, snap *nhl.Snapshot) (liveNow bool, err error) {
	if err := p.proc.Process(ctx, snap); err != nil {
		return false, err
	}

	state := snap.Landing.GameState
	if nhl.IsTerminalState(state) {
		p.markFinished(snap.GameID)
		return false, nil
	}
	return nhl.IsLiveState(state), nil
}

func (p *Poller) isFinished(gameID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.finished[gameID]
	return ok
}

func (p *Poller) markFinished(gameID int64) {
	p.mu.Lock()
	if _, done := p.finished[gameID]; !done {
		p.finished[gameID] = struct{}{}
		delete(p.bgLive, gameID)
		p.mu.Unlock()
		p.log.Info("game finished", logx.Int64("game_id", gameID))
		return
	}
	p.mu.Unlock()
}

// LiveGames reports the current background-live set (team by game id).
func (p *Poller) LiveGames() map[int64]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int64]string, len(p.bgLive))
	for id, team := range p.bgLive {
		out[id] = team
	}
	return out
}
