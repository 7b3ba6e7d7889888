package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pucktrack/internal/events"
	"pucktrack/internal/store"
	"pucktrack/internal/teamcolors"
)

// formatPayload shapes the event for the rule's destination. A custom
// template on the rule wins over the named format.
func (s *Service) formatPayload(rule store.Rule, ev events.Event) (body []byte, contentType string, err error) {
	colors := s.eventColors(ev)

	if strings.TrimSpace(rule.CustomTemplate) != "" {
		out, err := renderTemplate(rule.CustomTemplate, ev, colors)
		if err != nil {
			return nil, "", err
		}
		return []byte(out), "application/json", nil
	}

	switch rule.PayloadFormat {
	case store.FormatDiscord:
		body, err = json.Marshal(discordPayload(ev))
	case store.FormatHomeAssistant:
		body, err = json.Marshal(homeAssistantPayload(ev, colors))
	default:
		body, err = json.Marshal(genericPayload(ev, colors))
	}
	if err != nil {
		return nil, "", err
	}
	return body, "application/json", nil
}

// eventColors resolves the palette for the event's team context, falling
// back to the home side.
func (s *Service) eventColors(ev events.Event) []teamcolors.RGB {
	team := ev.Details.Team
	if team == "" {
		team = ev.HomeTeam
	}
	return s.colors.Colors(team)
}

// ---- Generic (canonical JSON) ----

type genericBody struct {
	EventType    string           `json:"eventType"`
	Timestamp    string           `json:"timestamp"`
	GameID       int64            `json:"gameId"`
	Period       int              `json:"period"`
	TimeInPeriod string           `json:"timeInPeriod"`
	HomeTeam     string           `json:"homeTeam"`
	AwayTeam     string           `json:"awayTeam"`
	HomeScore    int              `json:"homeScore"`
	AwayScore    int              `json:"awayScore"`
	TeamColors   []teamcolors.RGB `json:"team_colors"`
	Details      events.Details   `json:"details"`
}

func genericPayload(ev events.Event, colors []teamcolors.RGB) genericBody {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return genericBody{
		EventType:    string(ev.Type),
		Timestamp:    at.UTC().Format(time.RFC3339),
		GameID:       ev.GameID,
		Period:       ev.Period,
		TimeInPeriod: ev.TimeInPeriod,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		HomeScore:    ev.HomeScore,
		AwayScore:    ev.AwayScore,
		TeamColors:   colors,
		Details:      ev.Details,
	}
}

// ---- Home Assistant ----

// homeAssistantPayload emits the flat event/data map HA automations expect.
func homeAssistantPayload(ev events.Event, colors []teamcolors.RGB) map[string]any {
	data := map[string]any{
		"game_id":        ev.GameID,
		"home_team":      ev.HomeTeam,
		"away_team":      ev.AwayTeam,
		"home_score":     ev.HomeScore,
		"away_score":     ev.AwayScore,
		"period":         ev.Period,
		"time_in_period": ev.TimeInPeriod,
	}
	if len(colors) > 0 {
		data["team_colors"] = colors
	}
	if ev.Details.Team != "" {
		data["team"] = ev.Details.Team
	}
	if ev.Details.Player != "" {
		data["player"] = ev.Details.Player
	}
	return map[string]any{
		"event_type": "nhl_" + strings.ToLower(string(ev.Type)),
		"data":       data,
	}
}

// ---- Custom template ----

// renderTemplate substitutes the fixed placeholder set into the user string
// verbatim. No conditionals, no loops.
func renderTemplate(tmpl string, ev events.Event, colors []teamcolors.RGB) (string, error) {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	payload, err := json.Marshal(genericPayload(ev, colors))
	if err != nil {
		return "", err
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return "", err
	}

	r := strings.NewReplacer(
		"{{eventType}}", string(ev.Type),
		"{{team}}", ev.Details.Team,
		"{{player}}", ev.Details.Player,
		"{{gameId}}", fmt.Sprintf("%d", ev.GameID),
		"{{homeTeam}}", ev.HomeTeam,
		"{{awayTeam}}", ev.AwayTeam,
		"{{homeScore}}", fmt.Sprintf("%d", ev.HomeScore),
		"{{awayScore}}", fmt.Sprintf("%d", ev.AwayScore),
		"{{period}}", fmt.Sprintf("%d", ev.Period),
		"{{timeInPeriod}}", ev.TimeInPeriod,
		"{{timestamp}}", at.UTC().Format(time.RFC3339),
		"{{team_colors}}", string(colorsJSON),
		"{{payload}}", string(payload),
	)
	return r.Replace(tmpl), nil
}
