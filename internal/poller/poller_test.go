package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pucktrack/internal/live"
	"pucktrack/internal/nhl"
	logx "pucktrack/pkg/logx"
)

type fakeAPI struct {
	mu          sync.Mutex
	landings    map[int64]*nhl.Landing
	schedules   map[string]*nhl.ClubSchedule
	failLanding bool

	landingCalls   int
	boxscoreCalls  int
	shiftCalls     int
	scheduleCalls  int
	invalidated    []int64
	schedInvalided []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		landings:  make(map[int64]*nhl.Landing),
		schedules: make(map[string]*nhl.ClubSchedule),
	}
}

func (f *fakeAPI) GameLanding(_ context.Context, gameID int64) (*nhl.Landing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.landingCalls++
	if f.failLanding {
		return nil, errors.New("upstream down")
	}
	if l, ok := f.landings[gameID]; ok {
		return l, nil
	}
	return &nhl.Landing{ID: gameID, GameState: nhl.GameStateLive}, nil
}

func (f *fakeAPI) PlayByPlay(_ context.Context, gameID int64) (*nhl.PlayByPlay, error) {
	return &nhl.PlayByPlay{ID: gameID, GameState: nhl.GameStateLive}, nil
}

func (f *fakeAPI) Boxscore(_ context.Context, gameID int64) (*nhl.Boxscore, error) {
	f.mu.Lock()
	f.boxscoreCalls++
	f.mu.Unlock()
	return &nhl.Boxscore{ID: gameID}, nil
}

func (f *fakeAPI) ShiftChart(_ context.Context, gameID int64) (*nhl.ShiftChart, error) {
	f.mu.Lock()
	f.shiftCalls++
	f.mu.Unlock()
	return &nhl.ShiftChart{}, nil
}

func (f *fakeAPI) ClubScheduleWeek(_ context.Context, team string) (*nhl.ClubSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleCalls++
	if s, ok := f.schedules[team]; ok {
		return s, nil
	}
	return &nhl.ClubSchedule{}, nil
}

func (f *fakeAPI) InvalidateGame(gameID int64) {
	f.mu.Lock()
	f.invalidated = append(f.invalidated, gameID)
	f.mu.Unlock()
}

func (f *fakeAPI) InvalidateSchedule(team string) {
	f.mu.Lock()
	f.schedInvalided = append(f.schedInvalided, team)
	f.mu.Unlock()
}

type fakeProc struct {
	mu    sync.Mutex
	snaps []*nhl.Snapshot
	err   error
}

func (f *fakeProc) Process(_ context.Context, snap *nhl.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, snap)
	return f.err
}

func (f *fakeProc) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snaps)
}

type fakeStore struct {
	mu              sync.Mutex
	teams           []string
	processedSweeps []time.Time
	logSweeps       []time.Time
}

func (f *fakeStore) SubscribedTeams(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.teams...), nil
}

func (f *fakeStore) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	f.processedSweeps = append(f.processedSweeps, cutoff)
	f.mu.Unlock()
	return 1, nil
}

func (f *fakeStore) DeleteLogsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	f.logSweeps = append(f.logSweeps, cutoff)
	f.mu.Unlock()
	return 1, nil
}

func testPoller(api *fakeAPI, proc *fakeProc, st *fakeStore) (*Poller, *live.Holder) {
	holder := live.NewHolder()
	cfg := Config{
		LiveInterval:  3 * time.Second,
		IdleInterval:  30 * time.Second,
		ErrorCooldown: 5 * time.Second,
	}
	return New(cfg, api, holder, proc, st, logx.Nop()), holder
}

func TestTickIdleWhenNothingLive(t *testing.T) {
	t.Parallel()
	p, _ := testPoller(newFakeAPI(), &fakeProc{}, &fakeStore{})

	if got := p.tick(context.Background()); got != 30*time.Second {
		t.Fatalf("tick interval = %v, want idle 30s", got)
	}
}

func TestTickLiveWhenWatching(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	proc := &fakeProc{}
	p, holder := testPoller(api, proc, &fakeStore{})

	holder.Watch(100)
	if got := p.tick(context.Background()); got != 3*time.Second {
		t.Fatalf("tick interval = %v, want live 3s", got)
	}

	// Watched games get the full snapshot.
	api.mu.Lock()
	box, shifts := api.boxscoreCalls, api.shiftCalls
	api.mu.Unlock()
	if box != 1 || shifts != 1 {
		t.Fatalf("boxscore/shifts calls = %d/%d, want 1/1", box, shifts)
	}
	if proc.count() != 1 {
		t.Fatalf("processed snapshots = %d, want 1", proc.count())
	}
	if holder.Snapshot() == nil {
		t.Fatal("watched snapshot not published")
	}
	if holder.Snapshot().Boxscore == nil || holder.Snapshot().Shifts == nil {
		t.Fatal("published snapshot missing boxscore or shifts")
	}
}

func TestTickBackgroundLiveMinimalFetch(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	proc := &fakeProc{}
	p, _ := testPoller(api, proc, &fakeStore{})

	p.mu.Lock()
	p.bgLive[200] = "TOR"
	p.mu.Unlock()

	if got := p.tick(context.Background()); got != 3*time.Second {
		t.Fatalf("tick interval = %v, want live 3s", got)
	}

	api.mu.Lock()
	box, shifts := api.boxscoreCalls, api.shiftCalls
	api.mu.Unlock()
	if box != 0 || shifts != 0 {
		t.Fatalf("background poll fetched boxscore/shifts (%d/%d)", box, shifts)
	}
	if proc.count() != 1 {
		t.Fatalf("processed snapshots = %d, want 1", proc.count())
	}
}

func TestTickErrorCooldown(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	api.failLanding = true
	p, holder := testPoller(api, &fakeProc{}, &fakeStore{})
	holder.Watch(100)

	if got := p.tick(context.Background()); got != 5*time.Second {
		t.Fatalf("tick interval = %v, want error cooldown 5s", got)
	}
}

func TestWatchedWinsOverBackground(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	proc := &fakeProc{}
	p, holder := testPoller(api, proc, &fakeStore{})

	holder.Watch(100)
	p.mu.Lock()
	p.bgLive[100] = "TOR" // same game also in the background set
	p.mu.Unlock()

	p.tick(context.Background())
	if proc.count() != 1 {
		t.Fatalf("processed snapshots = %d, want 1 (no double poll)", proc.count())
	}
}

func TestTerminalGameDiffedOnceThenSuppressed(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	api.landings[300] = &nhl.Landing{ID: 300, GameState: nhl.GameStateFinal}
	proc := &fakeProc{}
	p, _ := testPoller(api, proc, &fakeStore{})

	p.mu.Lock()
	p.bgLive[300] = "TOR"
	p.mu.Unlock()

	// First tick diffs the terminal snapshot (game-end + result events).
	p.tick(context.Background())
	if proc.count() != 1 {
		t.Fatalf("processed snapshots = %d, want 1", proc.count())
	}

	// The game leaves the live set and stays suppressed.
	if games := p.LiveGames(); len(games) != 0 {
		t.Fatalf("live games = %v, want empty", games)
	}
	p.tick(context.Background())
	if proc.count() != 1 {
		t.Fatalf("terminal game polled again: %d snapshots", proc.count())
	}

	// A schedule scan still listing the game must not resurrect it.
	api.mu.Lock()
	api.schedules["TOR"] = &nhl.ClubSchedule{Games: []nhl.ScheduleGame{
		{ID: 300, GameState: nhl.GameStateLive},
	}}
	api.mu.Unlock()
	st := &fakeStore{teams: []string{"TOR"}}
	p.store = st
	p.scanSchedules(context.Background())
	if games := p.LiveGames(); len(games) != 0 {
		t.Fatalf("finished game resurrected by scan: %v", games)
	}
}

func TestWatchedTerminalGameSuppressed(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	api.landings[400] = &nhl.Landing{ID: 400, GameState: nhl.GameStateFinal}
	proc := &fakeProc{}
	p, holder := testPoller(api, proc, &fakeStore{})
	holder.Watch(400)

	// The terminal snapshot gets its final diff, but a viewer on a finished
	// game does not hold the fast cadence.
	if got := p.tick(context.Background()); got != 30*time.Second {
		t.Fatalf("tick interval after final diff = %v, want idle 30s", got)
	}
	if proc.count() != 1 {
		t.Fatalf("processed snapshots = %d, want 1", proc.count())
	}
	api.mu.Lock()
	calls := api.landingCalls
	api.mu.Unlock()

	// Later ticks neither fetch nor re-diff the finished game.
	if got := p.tick(context.Background()); got != 30*time.Second {
		t.Fatalf("tick interval = %v, want idle 30s", got)
	}
	if proc.count() != 1 {
		t.Fatalf("finished watched game re-diffed: %d snapshots", proc.count())
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.landingCalls != calls {
		t.Fatalf("finished watched game re-fetched: %d landing calls, want %d", api.landingCalls, calls)
	}
}

func TestScanBypassesScheduleCache(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	st := &fakeStore{teams: []string{"TOR", "BOS"}}
	p, _ := testPoller(api, &fakeProc{}, st)

	p.scanSchedules(context.Background())

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.schedInvalided) != 2 || api.schedInvalided[0] != "TOR" || api.schedInvalided[1] != "BOS" {
		t.Fatalf("schedule invalidations = %v, want [TOR BOS]", api.schedInvalided)
	}
	if api.scheduleCalls != 2 {
		t.Fatalf("schedule fetches = %d, want 2", api.scheduleCalls)
	}
}

func TestScanSchedulesAddsLiveGames(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	api.schedules["TOR"] = &nhl.ClubSchedule{Games: []nhl.ScheduleGame{
		{ID: 1, GameState: nhl.GameStateFuture},
		{ID: 2, GameState: nhl.GameStateLive},
		{ID: 3, GameState: nhl.GameStateCritical},
		{ID: 4, GameState: nhl.GameStateOff},
	}}
	st := &fakeStore{teams: []string{"TOR"}}
	p, _ := testPoller(api, &fakeProc{}, st)

	p.scanSchedules(context.Background())

	games := p.LiveGames()
	if len(games) != 2 {
		t.Fatalf("live games = %v, want ids 2 and 3", games)
	}
	for _, id := range []int64{2, 3} {
		if games[id] != "TOR" {
			t.Fatalf("game %d missing from live set: %v", id, games)
		}
	}
}

func TestScanSchedulesRemovesEndedGames(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	api.schedules["TOR"] = &nhl.ClubSchedule{Games: []nhl.ScheduleGame{
		{ID: 2, GameState: nhl.GameStateLive},
	}}
	st := &fakeStore{teams: []string{"TOR"}}
	p, _ := testPoller(api, &fakeProc{}, st)

	p.mu.Lock()
	p.bgLive[9] = "TOR" // no longer on the schedule
	p.mu.Unlock()

	p.scanSchedules(context.Background())

	games := p.LiveGames()
	if _, ok := games[9]; ok {
		t.Fatalf("ended game still in live set: %v", games)
	}
	if _, ok := games[2]; !ok {
		t.Fatalf("live game missing: %v", games)
	}
}

func TestSweepRetentionCutoffs(t *testing.T) {
	t.Parallel()
	st := &fakeStore{}
	cfg := Config{
		ProcessedRetention: 7 * 24 * time.Hour,
		LogRetention:       14 * 24 * time.Hour,
	}
	p := New(cfg, newFakeAPI(), live.NewHolder(), &fakeProc{}, st, logx.Nop())

	before := time.Now()
	p.sweepRetention(context.Background())

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.processedSweeps) != 1 || len(st.logSweeps) != 1 {
		t.Fatalf("sweeps = %d/%d, want 1/1", len(st.processedSweeps), len(st.logSweeps))
	}
	wantProcessed := before.Add(-7 * 24 * time.Hour)
	if d := st.processedSweeps[0].Sub(wantProcessed); d < 0 || d > time.Minute {
		t.Fatalf("processed cutoff = %v, want ~%v", st.processedSweeps[0], wantProcessed)
	}
	wantLogs := before.Add(-14 * 24 * time.Hour)
	if d := st.logSweeps[0].Sub(wantLogs); d < 0 || d > time.Minute {
		t.Fatalf("log cutoff = %v, want ~%v", st.logSweeps[0], wantLogs)
	}
}

func TestTickInvalidatesBeforeFetch(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	p, holder := testPoller(api, &fakeProc{}, &fakeStore{})
	holder.Watch(100)

	p.tick(context.Background())

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.invalidated) != 1 || api.invalidated[0] != 100 {
		t.Fatalf("invalidated = %v, want [100]", api.invalidated)
	}
}
