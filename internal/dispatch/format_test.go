package dispatch

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pucktrack/internal/audit"
	"pucktrack/internal/events"
	"pucktrack/internal/store"
	"pucktrack/internal/teamcolors"
	logx "pucktrack/pkg/logx"
)

func testEvent() events.Event {
	return events.Event{
		ID:           "55_505",
		Type:         events.GoalScored,
		GameID:       2024020500,
		Period:       2,
		TimeInPeriod: "15:30",
		HomeTeam:     "TOR",
		AwayTeam:     "BOS",
		HomeScore:    3,
		AwayScore:    1,
		Details: events.Details{
			Team:         "TOR",
			Player:       "Auston Matthews",
			JerseyNumber: 34,
			Assists:      []string{"Mitch Marner"},
		},
		OccurredAt: time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC),
	}
}

func testService(t *testing.T) *Service {
	t.Helper()
	return New(Config{}, nil, teamcolors.NewStatic(), audit.New(), logx.Nop())
}

func TestFormatGeneric(t *testing.T) {
	t.Parallel()
	s := testService(t)

	body, contentType, err := s.formatPayload(store.Rule{PayloadFormat: store.FormatGeneric}, testEvent())
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["eventType"] != "GoalScored" {
		t.Fatalf("eventType = %v", got["eventType"])
	}
	if got["timestamp"] != "2026-03-14T19:30:00Z" {
		t.Fatalf("timestamp = %v", got["timestamp"])
	}
	if got["gameId"] != float64(2024020500) {
		t.Fatalf("gameId = %v", got["gameId"])
	}
	if got["homeTeam"] != "TOR" || got["awayTeam"] != "BOS" {
		t.Fatalf("teams = %v/%v", got["homeTeam"], got["awayTeam"])
	}
	if got["homeScore"] != float64(3) || got["awayScore"] != float64(1) {
		t.Fatalf("score = %v-%v", got["homeScore"], got["awayScore"])
	}

	colors, ok := got["team_colors"].([]any)
	if !ok || len(colors) == 0 {
		t.Fatalf("team_colors = %v", got["team_colors"])
	}
	first, ok := colors[0].(map[string]any)
	if !ok {
		t.Fatalf("color entry = %v", colors[0])
	}
	for _, k := range []string{"r", "g", "b"} {
		if _, ok := first[k]; !ok {
			t.Fatalf("color entry missing %q: %v", k, first)
		}
	}

	details, ok := got["details"].(map[string]any)
	if !ok {
		t.Fatalf("details = %v", got["details"])
	}
	if details["player"] != "Auston Matthews" || details["jerseyNumber"] != float64(34) {
		t.Fatalf("details = %v", details)
	}
}

func TestFormatGenericOmitsEmptyDetails(t *testing.T) {
	t.Parallel()
	s := testService(t)

	ev := testEvent()
	ev.Type = events.PeriodEnd
	ev.Details = events.Details{}

	body, _, err := s.formatPayload(store.Rule{PayloadFormat: store.FormatGeneric}, ev)
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}
	var got struct {
		Details map[string]any `json:"details"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Details) != 0 {
		t.Fatalf("details should be empty, got %v", got.Details)
	}
}

func TestFormatDiscord(t *testing.T) {
	t.Parallel()
	s := testService(t)

	body, _, err := s.formatPayload(store.Rule{PayloadFormat: store.FormatDiscord}, testEvent())
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}

	var got discordBody
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if !strings.Contains(embed.Title, "TOR") {
		t.Fatalf("title = %q, want team mention", embed.Title)
	}
	if !strings.Contains(embed.Description, "Auston Matthews") || !strings.Contains(embed.Description, "Mitch Marner") {
		t.Fatalf("description = %q", embed.Description)
	}
	if embed.Color != embedColors[events.GoalScored] {
		t.Fatalf("color = %d, want %d", embed.Color, embedColors[events.GoalScored])
	}
	if len(embed.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(embed.Fields))
	}
	wantFields := map[string]string{
		"Score":  "BOS 1 - 3 TOR",
		"Period": "2nd",
		"Time":   "15:30",
	}
	for _, f := range embed.Fields {
		if !f.Inline {
			t.Fatalf("field %q not inline", f.Name)
		}
		if want, ok := wantFields[f.Name]; !ok || f.Value != want {
			t.Fatalf("field %q = %q, want %q", f.Name, f.Value, want)
		}
	}
	if embed.Footer.Text != "Game 2024020500" {
		t.Fatalf("footer = %q", embed.Footer.Text)
	}
	if embed.Timestamp != "2026-03-14T19:30:00Z" {
		t.Fatalf("timestamp = %q", embed.Timestamp)
	}
}

func TestFormatHomeAssistant(t *testing.T) {
	t.Parallel()
	s := testService(t)

	body, _, err := s.formatPayload(store.Rule{PayloadFormat: store.FormatHomeAssistant}, testEvent())
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}

	var got struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EventType != "nhl_goalscored" {
		t.Fatalf("event_type = %q, want nhl_goalscored", got.EventType)
	}
	if got.Data["game_id"] != float64(2024020500) {
		t.Fatalf("game_id = %v", got.Data["game_id"])
	}
	if got.Data["team"] != "TOR" || got.Data["player"] != "Auston Matthews" {
		t.Fatalf("team/player = %v/%v", got.Data["team"], got.Data["player"])
	}
	if got.Data["time_in_period"] != "15:30" {
		t.Fatalf("time_in_period = %v", got.Data["time_in_period"])
	}
}

func TestFormatCustomTemplate(t *testing.T) {
	t.Parallel()
	s := testService(t)

	rule := store.Rule{
		PayloadFormat:  store.FormatGeneric,
		CustomTemplate: `{"text":"{{eventType}} by {{player}} ({{team}}) at {{timeInPeriod}}","score":"{{awayScore}}-{{homeScore}}"}`,
	}
	body, contentType, err := s.formatPayload(rule, testEvent())
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}

	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("template output is not valid JSON: %v\n%s", err, body)
	}
	if got["text"] != "GoalScored by Auston Matthews (TOR) at 15:30" {
		t.Fatalf("text = %q", got["text"])
	}
	if got["score"] != "1-3" {
		t.Fatalf("score = %q", got["score"])
	}
}

func TestFormatCustomTemplatePayloadPlaceholder(t *testing.T) {
	t.Parallel()
	s := testService(t)

	rule := store.Rule{CustomTemplate: `{"wrapped":{{payload}}}`}
	body, _, err := s.formatPayload(rule, testEvent())
	if err != nil {
		t.Fatalf("formatPayload error: %v", err)
	}
	var got struct {
		Wrapped map[string]any `json:"wrapped"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, body)
	}
	if got.Wrapped["eventType"] != "GoalScored" {
		t.Fatalf("wrapped payload = %v", got.Wrapped)
	}
}

func TestPeriodLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		period     int
		periodType string
		want       string
	}{
		{1, "REG", "1st"},
		{2, "REG", "2nd"},
		{3, "REG", "3rd"},
		{4, "OT", "OT"},
		// Regular-season period 5 is the shootout; playoff period 5 is 2OT.
		{5, "SO", "SO"},
		{5, "OT", "2OT"},
		{6, "OT", "3OT"},
		{0, "", "P0"},
	}
	for _, tt := range tests {
		if got := periodLabel(tt.period, tt.periodType); got != tt.want {
			t.Fatalf("periodLabel(%d, %q) = %q, want %q", tt.period, tt.periodType, got, tt.want)
		}
	}
}
