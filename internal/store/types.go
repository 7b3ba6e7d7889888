package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Payload formats a rule can request.
const (
	FormatGeneric       = "generic"
	FormatDiscord       = "discord"
	FormatHomeAssistant = "home_assistant"
)

// Rule is a user subscription: team + event type -> destination.
// The management surface owns the lifecycle; the core reads them.
type Rule struct {
	ID             int64
	TeamAbbrev     string
	EventType      string
	TargetURL      string
	PayloadFormat  string
	IsEnabled      bool
	Name           string
	DelaySeconds   int
	CustomTemplate string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProcessedEvent is one dedup ledger row.
// Invariant: unique on (GameID, EventID).
type ProcessedEvent struct {
	GameID      int64
	EventID     string
	EventType   string
	ProcessedAt time.Time
}

// Log is one webhook delivery audit row (append-only, one per delivery,
// capturing the last attempt's outcome).
type Log struct {
	ID          int64
	RuleID      int64
	EventType   string
	GameID      int64
	Success     bool
	HTTPStatus  int
	Error       string
	TriggeredAt time.Time
	Description string
}
