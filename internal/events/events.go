// Package events defines the domain event taxonomy derived from snapshots.
package events

import "time"

// Type is a semantically typed occurrence.
type Type string

const (
	GoalScored     Type = "GoalScored"
	Penalty        Type = "Penalty"
	GameStart      Type = "GameStart"
	PeriodStart    Type = "PeriodStart"
	PeriodEnd      Type = "PeriodEnd"
	GameEnd        Type = "GameEnd"
	OvertimeStart  Type = "OvertimeStart"
	ShootoutStart  Type = "ShootoutStart"
	PowerPlayStart Type = "PowerPlayStart"
	GoaliePulled   Type = "GoaliePulled"
	TeamWin        Type = "TeamWin"
	TeamLoss       Type = "TeamLoss"
)

// AllTypes lists every event type a rule may subscribe to.
func AllTypes() []Type {
	return []Type{
		GoalScored, Penalty, GameStart, PeriodStart, PeriodEnd, GameEnd,
		OvertimeStart, ShootoutStart, PowerPlayStart, GoaliePulled,
		TeamWin, TeamLoss,
	}
}

// Details carries the type-specific fields of an event.
// Unset fields stay zero and are omitted from payloads.
type Details struct {
	Team           string   `json:"team,omitempty"`
	Player         string   `json:"player,omitempty"`
	JerseyNumber   int      `json:"jerseyNumber,omitempty"`
	Assists        []string `json:"assists,omitempty"`
	PenaltyType    string   `json:"penaltyType,omitempty"`
	PenaltyMinutes int      `json:"penaltyMinutes,omitempty"`
	Strength       string   `json:"strength,omitempty"`
}

// Event is one occurrence produced by the diff engine.
type Event struct {
	// ID is the dedup ledger key: "{rawEventId}_{typeCode}" for discrete
	// plays, a synthetic key otherwise.
	ID   string
	Type Type

	GameID       int64
	Period       int
	PeriodType   string // REG, OT or SO as reported upstream
	TimeInPeriod string

	HomeTeam  string
	AwayTeam  string
	HomeScore int
	AwayScore int

	Details Details

	OccurredAt time.Time
}
