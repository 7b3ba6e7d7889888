// Package diff turns successive game snapshots into new domain events and
// drives their delivery.
package diff

import (
	"context"
	"fmt"
	"time"

	"pucktrack/internal/events"
	"pucktrack/internal/nhl"
	"pucktrack/internal/store"
	logx "pucktrack/pkg/logx"
)

// PowerPlayKeyPolicy selects the dedup key for synthetic power-play events.
//
// The upstream snapshot has no discrete "power play started" play, so the
// engine re-derives the state every tick and relies on the ledger key to
// fire once. "clock" keys on (team, period, clock reading): a continuous
// power play polled at finer granularity than the clock resolution can
// re-fire. "strength" keys on the strength pairing instead, which fires once
// per distinct man-advantage state.
type PowerPlayKeyPolicy string

const (
	KeyByClock    PowerPlayKeyPolicy = "clock"
	KeyByStrength PowerPlayKeyPolicy = "strength"
)

// Ledger is the dedup persistence the engine consults and updates.
// MarkProcessed returns the event ids the caller actually inserted, which is
// what arbitrates concurrent diff passes over the same game.
type Ledger interface {
	ProcessedEventIDs(ctx context.Context, gameID int64) (map[string]struct{}, error)
	MarkProcessed(ctx context.Context, evs []store.ProcessedEvent) (map[string]struct{}, error)
}

// RuleSource answers "which destinations care", grouped by event type.
type RuleSource interface {
	EnabledRulesByTeam(ctx context.Context, teamAbbrev string) (map[string][]store.Rule, error)
}

// Dispatcher delivers one event to one rule. Implementations must not block
// the tick (the dispatch engine queues internally).
type Dispatcher interface {
	Dispatch(ctx context.Context, rule store.Rule, ev events.Event) error
}

type Engine struct {
	ledger   Ledger
	rules    RuleSource
	dispatch Dispatcher
	log      logx.Logger

	ppKey PowerPlayKeyPolicy
}

func NewEngine(ledger Ledger, rules RuleSource, dispatch Dispatcher, ppKey PowerPlayKeyPolicy, log logx.Logger) *Engine {
	if ppKey != KeyByStrength {
		ppKey = KeyByClock
	}
	return &Engine{ledger: ledger, rules: rules, dispatch: dispatch, ppKey: ppKey, log: log}
}

// Process diffs one fresh snapshot against the dedup ledger and dispatches
// every new event to matching rules.
//
// Ordering: dedup membership is checked against the set loaded at entry;
// synthetic events are derived strictly after the discrete plays.
func (e *Engine) Process(ctx context.Context, snap *nhl.Snapshot) error {
	if snap == nil || snap.Landing == nil || snap.PlayByPlay == nil {
		return nil
	}
	landing := snap.Landing
	pbp := snap.PlayByPlay

	processed, err := e.ledger.ProcessedEventIDs(ctx, snap.GameID)
	if err != nil {
		return fmt.Errorf("load processed ids: %w", err)
	}

	// One query per team, grouped by event type, so rule matching inside the
	// play loop is a map lookup.
	homeRules, err := e.rules.EnabledRulesByTeam(ctx, pbp.HomeTeam.Abbrev)
	if err != nil {
		return fmt.Errorf("load home rules: %w", err)
	}
	awayRules, err := e.rules.EnabledRulesByTeam(ctx, pbp.AwayTeam.Abbrev)
	if err != nil {
		return fmt.Errorf("load away rules: %w", err)
	}

	now := time.Now()
	var (
		fresh []events.Event
		rows  []store.ProcessedEvent
	)
	seen := func(id string) bool {
		_, ok := processed[id]
		return ok
	}
	add := func(ev events.Event) {
		// Guard against duplicate ids within one play list.
		if seen(ev.ID) {
			return
		}
		processed[ev.ID] = struct{}{}
		fresh = append(fresh, ev)
		rows = append(rows, store.ProcessedEvent{
			GameID:      snap.GameID,
			EventID:     ev.ID,
			EventType:   string(ev.Type),
			ProcessedAt: now,
		})
	}

	for _, play := range pbp.Plays {
		id := fmt.Sprintf("%d_%d", play.EventID, play.TypeCode)
		if seen(id) {
			continue
		}
		typ, ok := events.MapTypeCode(play.TypeCode, play.PeriodDescriptor.Number)
		if !ok {
			// Unmapped codes are ignored: not stored, not retried.
			continue
		}
		add(e.buildPlayEvent(id, typ, play, landing, pbp, now))
	}

	// Synthetic events come strictly after discrete play processing.
	for _, ev := range e.deriveSynthetic(landing, pbp, now) {
		add(ev)
	}

	// Batch insert. Only ids this pass won at the ledger get dispatched: a
	// concurrent pass over the same game (viewer tick vs background tick)
	// loses the conflict and stays silent.
	won, err := e.ledger.MarkProcessed(ctx, rows)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	dispatched := 0
	for _, ev := range fresh {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := won[ev.ID]; !ok {
			continue
		}
		dispatched++
		e.dispatchEvent(ctx, ev, homeRules, awayRules)
	}

	if dispatched > 0 {
		e.log.Info("snapshot diffed",
			logx.Int64("game_id", snap.GameID),
			logx.Int("new_events", dispatched),
		)
	}
	return nil
}

func (e *Engine) buildPlayEvent(id string, typ events.Type, play nhl.Play, landing *nhl.Landing, pbp *nhl.PlayByPlay, now time.Time) events.Event {
	ev := events.Event{
		ID:           id,
		Type:         typ,
		GameID:       pbp.ID,
		Period:       play.PeriodDescriptor.Number,
		PeriodType:   play.PeriodDescriptor.PeriodType,
		TimeInPeriod: play.TimeInPeriod,
		HomeTeam:     pbp.HomeTeam.Abbrev,
		AwayTeam:     pbp.AwayTeam.Abbrev,
		HomeScore:    landing.HomeTeam.Score,
		AwayScore:    landing.AwayTeam.Score,
		OccurredAt:   now,
	}
	if team := pbp.TeamAbbrev(play.Details.EventOwnerTeamID); team != "" {
		ev.Details.Team = team
	}

	switch typ {
	case events.GoalScored:
		// Goal plays carry the post-goal score; prefer it over the landing
		// summary, which may lag by a poll.
		if play.Details.HomeScore > 0 || play.Details.AwayScore > 0 {
			ev.HomeScore = play.Details.HomeScore
			ev.AwayScore = play.Details.AwayScore
		}
		if name, ok := pbp.PlayerName(play.Details.ScoringPlayerID); ok {
			ev.Details.Player = name
			ev.Details.JerseyNumber = pbp.SweaterNumber(play.Details.ScoringPlayerID)
		}
		for _, assistID := range []int64{play.Details.Assist1PlayerID, play.Details.Assist2PlayerID} {
			if name, ok := pbp.PlayerName(assistID); ok {
				ev.Details.Assists = append(ev.Details.Assists, name)
			}
		}
	case events.Penalty:
		if name, ok := pbp.PlayerName(play.Details.CommittedByPlayerID); ok {
			ev.Details.Player = name
			ev.Details.JerseyNumber = pbp.SweaterNumber(play.Details.CommittedByPlayerID)
		}
		ev.Details.PenaltyType = play.Details.DescKey
		ev.Details.PenaltyMinutes = play.Details.Duration
	}
	return ev
}

// dispatchEvent delivers sequentially to every enabled rule matching either
// participant. Rules are independent; failures are the dispatcher's problem.
func (e *Engine) dispatchEvent(ctx context.Context, ev events.Event, homeRules, awayRules map[string][]store.Rule) {
	matched := append([]store.Rule(nil), homeRules[string(ev.Type)]...)
	matched = append(matched, awayRules[string(ev.Type)]...)
	for _, rule := range matched {
		if err := e.dispatch.Dispatch(ctx, rule, ev); err != nil {
			e.log.Warn("dispatch enqueue failed",
				logx.Int64("rule_id", rule.ID),
				logx.String("event_type", string(ev.Type)),
				logx.Err(err),
			)
		}
	}
}
