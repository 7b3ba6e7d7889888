package diff

import (
	"fmt"
	"time"

	"pucktrack/internal/events"
	"pucktrack/internal/nhl"
)

// deriveSynthetic infers events from the current game situation rather than
// from discrete play codes. Every key lands in the dedup ledger, so
// re-derivation on the next tick is a no-op.
func (e *Engine) deriveSynthetic(landing *nhl.Landing, pbp *nhl.PlayByPlay, now time.Time) []events.Event {
	var out []events.Event

	base := func(id string, typ events.Type) events.Event {
		return events.Event{
			ID:           id,
			Type:         typ,
			GameID:       landing.ID,
			Period:       landing.PeriodDescriptor.Number,
			PeriodType:   landing.PeriodDescriptor.PeriodType,
			TimeInPeriod: landing.Clock.TimeRemaining,
			HomeTeam:     landing.HomeTeam.Abbrev,
			AwayTeam:     landing.AwayTeam.Abbrev,
			HomeScore:    landing.HomeTeam.Score,
			AwayScore:    landing.AwayTeam.Score,
			OccurredAt:   now,
		}
	}

	live := nhl.IsLiveState(landing.GameState)

	if live && landing.Situation != nil {
		sit := landing.Situation

		// Strength mismatch: the advantaged team is on the power play.
		if sit.HomeTeam.Strength != sit.AwayTeam.Strength {
			adv := sit.HomeTeam.Abbrev
			if sit.AwayTeam.Strength > sit.HomeTeam.Strength {
				adv = sit.AwayTeam.Abbrev
			}
			ev := base(e.powerPlayKey(adv, landing, sit), events.PowerPlayStart)
			ev.Details.Team = adv
			ev.Details.Strength = fmt.Sprintf("%dv%d", sit.HomeTeam.Strength, sit.AwayTeam.Strength)
			out = append(out, ev)
		}

		// Empty net, keyed by (team, period): one event per pull per period.
		if sit.HomeNetEmpty() {
			ev := base(fmt.Sprintf("goaliepulled:%s:%d", landing.HomeTeam.Abbrev, landing.PeriodDescriptor.Number), events.GoaliePulled)
			ev.Details.Team = landing.HomeTeam.Abbrev
			out = append(out, ev)
		}
		if sit.AwayNetEmpty() {
			ev := base(fmt.Sprintf("goaliepulled:%s:%d", landing.AwayTeam.Abbrev, landing.PeriodDescriptor.Number), events.GoaliePulled)
			ev.Details.Team = landing.AwayTeam.Abbrev
			out = append(out, ev)
		}
	}

	if live {
		switch landing.PeriodDescriptor.PeriodType {
		case "OT":
			out = append(out, base(fmt.Sprintf("overtime:%d", landing.PeriodDescriptor.Number), events.OvertimeStart))
		case "SO":
			out = append(out, base("shootout", events.ShootoutStart))
		}
	}

	// Terminal state: exactly one win and one loss, keyed once per game.
	if nhl.IsTerminalState(landing.GameState) && landing.HomeTeam.Score != landing.AwayTeam.Score {
		winner, loser := landing.HomeTeam.Abbrev, landing.AwayTeam.Abbrev
		if landing.AwayTeam.Score > landing.HomeTeam.Score {
			winner, loser = loser, winner
		}
		win := base("result:win", events.TeamWin)
		win.Details.Team = winner
		loss := base("result:loss", events.TeamLoss)
		loss.Details.Team = loser
		out = append(out, win, loss)
	}

	return out
}

func (e *Engine) powerPlayKey(advantaged string, landing *nhl.Landing, sit *nhl.Situation) string {
	if e.ppKey == KeyByStrength {
		return fmt.Sprintf("pp:%s:%d:%dv%d",
			advantaged, landing.PeriodDescriptor.Number,
			sit.HomeTeam.Strength, sit.AwayTeam.Strength)
	}
	// Clock-keyed: fires once per distinct clock reading. A continuous power
	// play can re-fire when polled at finer granularity than the clock
	// string changes; see PowerPlayKeyPolicy.
	return fmt.Sprintf("pp:%s:%d:%s",
		advantaged, landing.PeriodDescriptor.Number, landing.Clock.TimeRemaining)
}
