package dispatch

import (
	"fmt"
	"time"

	"pucktrack/internal/events"
)

// Discord webhook payload shapes. Only the fields the embed uses.

type discordBody struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// embedColors maps event types to Discord decimal color values.
var embedColors = map[events.Type]int{
	events.GoalScored:     0xE74C3C,
	events.Penalty:        0xE67E22,
	events.GameStart:      0x2ECC71,
	events.PeriodStart:    0x3498DB,
	events.PeriodEnd:      0x95A5A6,
	events.GameEnd:        0x9B59B6,
	events.OvertimeStart:  0xF1C40F,
	events.ShootoutStart:  0xF39C12,
	events.PowerPlayStart: 0x1ABC9C,
	events.GoaliePulled:   0xC0392B,
	events.TeamWin:        0x27AE60,
	events.TeamLoss:       0x7F8C8D,
}

func discordPayload(ev events.Event) discordBody {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	color, ok := embedColors[ev.Type]
	if !ok {
		color = 0x34495E
	}
	embed := discordEmbed{
		Title:       embedTitle(ev),
		Description: embedDescription(ev),
		Color:       color,
		Fields: []discordField{
			{Name: "Score", Value: fmt.Sprintf("%s %d - %d %s", ev.AwayTeam, ev.AwayScore, ev.HomeScore, ev.HomeTeam), Inline: true},
			{Name: "Period", Value: periodLabel(ev.Period, ev.PeriodType), Inline: true},
			{Name: "Time", Value: ev.TimeInPeriod, Inline: true},
		},
		Footer:    discordFooter{Text: fmt.Sprintf("Game %d", ev.GameID)},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	return discordBody{Embeds: []discordEmbed{embed}}
}

func embedTitle(ev events.Event) string {
	switch ev.Type {
	case events.GoalScored:
		if ev.Details.Team != "" {
			return fmt.Sprintf("🚨 %s Goal!", ev.Details.Team)
		}
		return "🚨 Goal!"
	case events.Penalty:
		if ev.Details.Team != "" {
			return fmt.Sprintf("Penalty on %s", ev.Details.Team)
		}
		return "Penalty"
	case events.GameStart:
		return fmt.Sprintf("Puck drop: %s @ %s", ev.AwayTeam, ev.HomeTeam)
	case events.PeriodStart:
		return fmt.Sprintf("%s underway", periodLabel(ev.Period, ev.PeriodType))
	case events.PeriodEnd:
		return fmt.Sprintf("End of %s", periodLabel(ev.Period, ev.PeriodType))
	case events.GameEnd:
		return "Final"
	case events.OvertimeStart:
		return "Overtime!"
	case events.ShootoutStart:
		return "Shootout!"
	case events.PowerPlayStart:
		if ev.Details.Team != "" {
			return fmt.Sprintf("%s power play", ev.Details.Team)
		}
		return "Power play"
	case events.GoaliePulled:
		if ev.Details.Team != "" {
			return fmt.Sprintf("%s pull the goalie", ev.Details.Team)
		}
		return "Goalie pulled"
	case events.TeamWin:
		return fmt.Sprintf("%s win!", ev.Details.Team)
	case events.TeamLoss:
		return fmt.Sprintf("%s fall short", ev.Details.Team)
	default:
		return string(ev.Type)
	}
}

func embedDescription(ev events.Event) string {
	switch ev.Type {
	case events.GoalScored:
		if ev.Details.Player == "" {
			return ""
		}
		desc := ev.Details.Player
		if ev.Details.JerseyNumber != 0 {
			desc = fmt.Sprintf("#%d %s", ev.Details.JerseyNumber, ev.Details.Player)
		}
		if len(ev.Details.Assists) > 0 {
			desc += " (" + joinAssists(ev.Details.Assists) + ")"
		}
		return desc
	case events.Penalty:
		if ev.Details.Player == "" {
			return ""
		}
		desc := ev.Details.Player
		if ev.Details.PenaltyType != "" {
			desc += ", " + ev.Details.PenaltyType
		}
		if ev.Details.PenaltyMinutes > 0 {
			desc += fmt.Sprintf(" (%d min)", ev.Details.PenaltyMinutes)
		}
		return desc
	case events.PowerPlayStart:
		if ev.Details.Strength != "" {
			return ev.Details.Strength
		}
		return ""
	default:
		return ""
	}
}

func joinAssists(assists []string) string {
	out := ""
	for i, a := range assists {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

func periodLabel(period int, periodType string) string {
	// A regular-season period 5 is the shootout, not double overtime; trust
	// the upstream period type over the ordinal.
	if periodType == "SO" {
		return "SO"
	}
	switch period {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	case 4:
		return "OT"
	default:
		if period > 4 {
			return fmt.Sprintf("%dOT", period-3)
		}
		return fmt.Sprintf("P%d", period)
	}
}
