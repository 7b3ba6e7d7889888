package poller

import (
	"context"
	"time"

	"pucktrack/internal/nhl"
	logx "pucktrack/pkg/logx"
)

// scanSchedules refreshes the background-live set from the week schedules of
// every team with at least one enabled rule.
func (p *Poller) scanSchedules(ctx context.Context) {
	teams, err := p.store.SubscribedTeams(ctx)
	if err != nil {
		p.log.Warn("schedule scan: load subscribed teams", logx.Err(err))
		return
	}

	current := make(map[int64]string)
	for _, team := range teams {
		// The scan exists to notice live transitions, so it must bypass the
		// schedule cache the same way game polls bypass snapshot caches.
		p.api.InvalidateSchedule(team)
		sched, err := p.api.ClubScheduleWeek(ctx, team)
		if err != nil {
			p.log.Warn("schedule scan: fetch schedule", logx.String("team", team), logx.Err(err))
			continue
		}
		for _, g := range sched.Games {
			if !nhl.IsLiveState(g.GameState) {
				continue
			}
			if _, ok := current[g.ID]; !ok {
				current[g.ID] = team
			}
		}
	}

	p.mu.Lock()
	var started, ended []int64
	for id := range current {
		if _, done := p.finished[id]; done {
			delete(current, id)
			continue
		}
		if _, ok := p.bgLive[id]; !ok {
			started = append(started, id)
		}
	}
	for id := range p.bgLive {
		if _, ok := current[id]; !ok {
			ended = append(ended, id)
		}
	}
	p.bgLive = current
	p.mu.Unlock()

	for _, id := range started {
		p.log.Info("game went live", logx.Int64("game_id", id), logx.String("team", current[id]))
	}
	for _, id := range ended {
		p.log.Info("game left live set", logx.Int64("game_id", id))
	}
}

// sweepRetention prunes the dedup ledger and the delivery log.
func (p *Poller) sweepRetention(ctx context.Context) {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	now := time.Now()

	n, err := p.store.DeleteProcessedBefore(ctx, now.Add(-cfg.ProcessedRetention))
	if err != nil {
		p.log.Warn("retention: processed events sweep", logx.Err(err))
	} else if n > 0 {
		p.log.Info("retention: pruned processed events", logx.Int64("rows", n))
	}

	n, err = p.store.DeleteLogsBefore(ctx, now.Add(-cfg.LogRetention))
	if err != nil {
		p.log.Warn("retention: webhook logs sweep", logx.Err(err))
	} else if n > 0 {
		p.log.Info("retention: pruned webhook logs", logx.Int64("rows", n))
	}
}
