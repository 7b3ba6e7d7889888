// Package nhl wraps the public NHL snapshot API (api-web.nhle.com).
//
// All types mirror the upstream JSON field-for-field; snapshots are read-only
// and replaced wholesale on each fetch, never merged.
package nhl

// Game states as reported by the upstream API.
const (
	GameStateFuture   = "FUT"
	GameStateLive     = "LIVE"
	GameStateCritical = "CRIT"
	GameStateFinal    = "FINAL"
	GameStateOff      = "OFF"
)

// IsLiveState reports whether a game in this state is in progress.
func IsLiveState(state string) bool {
	return state == GameStateLive || state == GameStateCritical
}

// IsTerminalState reports whether a game in this state is over.
func IsTerminalState(state string) bool {
	return state == GameStateFinal || state == GameStateOff
}

type LocalizedName struct {
	Default string `json:"default"`
}

type PeriodDescriptor struct {
	Number     int    `json:"number"`
	PeriodType string `json:"periodType"` // "REG", "OT", "SO"
}

type TeamSide struct {
	ID     int64         `json:"id"`
	Abbrev string        `json:"abbrev"`
	Name   LocalizedName `json:"name"`
	Score  int           `json:"score"`
	SOG    int           `json:"sog"`
}

type SituationTeam struct {
	Abbrev                string   `json:"abbrev"`
	Strength              int      `json:"strength"`
	SituationDescriptions []string `json:"situationDescriptions,omitempty"`
}

// Situation carries the current on-ice strength state.
//
// SituationCode is four digits: away goalie, away skaters, home skaters,
// home goalie ("1551" = even strength, both goalies in).
type Situation struct {
	HomeTeam         SituationTeam `json:"homeTeam"`
	AwayTeam         SituationTeam `json:"awayTeam"`
	SituationCode    string        `json:"situationCode"`
	TimeRemaining    string        `json:"timeRemaining,omitempty"`
	SecondsRemaining int           `json:"secondsRemaining,omitempty"`
}

// HomeNetEmpty reports whether the home goalie is pulled.
func (s Situation) HomeNetEmpty() bool {
	return len(s.SituationCode) == 4 && s.SituationCode[3] == '0'
}

// AwayNetEmpty reports whether the away goalie is pulled.
func (s Situation) AwayNetEmpty() bool {
	return len(s.SituationCode) == 4 && s.SituationCode[0] == '0'
}

type GameClock struct {
	TimeRemaining    string `json:"timeRemaining"`
	SecondsRemaining int    `json:"secondsRemaining"`
	Running          bool   `json:"running"`
	InIntermission   bool   `json:"inIntermission"`
}

// Landing is the game summary resource (gamecenter/{id}/landing).
type Landing struct {
	ID               int64            `json:"id"`
	Season           int              `json:"season"`
	GameType         int              `json:"gameType"`
	GameDate         string           `json:"gameDate"`
	GameState        string           `json:"gameState"`
	PeriodDescriptor PeriodDescriptor `json:"periodDescriptor"`
	Clock            GameClock        `json:"clock"`
	HomeTeam         TeamSide         `json:"homeTeam"`
	AwayTeam         TeamSide         `json:"awayTeam"`
	Situation        *Situation       `json:"situation,omitempty"`
}

// PlayDetails is the variant detail bag attached to a play. Fields are
// populated per type code; unset fields decode to zero values.
type PlayDetails struct {
	EventOwnerTeamID int64 `json:"eventOwnerTeamId,omitempty"`

	// Goals
	ScoringPlayerID int64 `json:"scoringPlayerId,omitempty"`
	Assist1PlayerID int64 `json:"assist1PlayerId,omitempty"`
	Assist2PlayerID int64 `json:"assist2PlayerId,omitempty"`
	HomeScore       int   `json:"homeScore,omitempty"`
	AwayScore       int   `json:"awayScore,omitempty"`

	// Penalties
	CommittedByPlayerID int64  `json:"committedByPlayerId,omitempty"`
	DescKey             string `json:"descKey,omitempty"`
	Duration            int    `json:"duration,omitempty"`

	XCoord int `json:"xCoord,omitempty"`
	YCoord int `json:"yCoord,omitempty"`
}

// Play is one discrete upstream event record.
// Identity key = (EventID, TypeCode).
type Play struct {
	EventID          int64            `json:"eventId"`
	TypeCode         int              `json:"typeCode"`
	TypeDescKey      string           `json:"typeDescKey"`
	PeriodDescriptor PeriodDescriptor `json:"periodDescriptor"`
	TimeInPeriod     string           `json:"timeInPeriod"`
	TimeRemaining    string           `json:"timeRemaining"`
	SituationCode    string           `json:"situationCode,omitempty"`
	SortOrder        int              `json:"sortOrder,omitempty"`
	Details          PlayDetails      `json:"details,omitempty"`
}

// RosterSpot links a player id to a team and display name.
type RosterSpot struct {
	TeamID        int64         `json:"teamId"`
	PlayerID      int64         `json:"playerId"`
	FirstName     LocalizedName `json:"firstName"`
	LastName      LocalizedName `json:"lastName"`
	SweaterNumber int           `json:"sweaterNumber"`
	PositionCode  string        `json:"positionCode,omitempty"`
}

// PlayByPlay is the play list resource (gamecenter/{id}/play-by-play).
type PlayByPlay struct {
	ID               int64            `json:"id"`
	GameState        string           `json:"gameState"`
	PeriodDescriptor PeriodDescriptor `json:"periodDescriptor"`
	Clock            GameClock        `json:"clock"`
	HomeTeam         TeamSide         `json:"homeTeam"`
	AwayTeam         TeamSide         `json:"awayTeam"`
	Plays            []Play           `json:"plays"`
	RosterSpots      []RosterSpot     `json:"rosterSpots"`
}

// PlayerName resolves a player id against the embedded roster list.
// Returns ("", false) for unknown ids.
func (p *PlayByPlay) PlayerName(id int64) (string, bool) {
	if p == nil || id == 0 {
		return "", false
	}
	for _, rs := range p.RosterSpots {
		if rs.PlayerID == id {
			return rs.FirstName.Default + " " + rs.LastName.Default, true
		}
	}
	return "", false
}

// SweaterNumber resolves a player id to a jersey number, 0 if unknown.
func (p *PlayByPlay) SweaterNumber(id int64) int {
	if p == nil || id == 0 {
		return 0
	}
	for _, rs := range p.RosterSpots {
		if rs.PlayerID == id {
			return rs.SweaterNumber
		}
	}
	return 0
}

// TeamAbbrev resolves a team id to its abbreviation, "" if it is neither side.
func (p *PlayByPlay) TeamAbbrev(teamID int64) string {
	if p == nil {
		return ""
	}
	switch teamID {
	case p.HomeTeam.ID:
		return p.HomeTeam.Abbrev
	case p.AwayTeam.ID:
		return p.AwayTeam.Abbrev
	}
	return ""
}

// BoxscorePlayer carries per-player stat lines. Upstream types some stat
// values loosely (number or string), so they decode into StatValue.
type BoxscorePlayer struct {
	PlayerID      int64         `json:"playerId"`
	SweaterNumber int           `json:"sweaterNumber"`
	Name          LocalizedName `json:"name"`
	Position      string        `json:"position"`
	Goals         int           `json:"goals"`
	Assists       int           `json:"assists"`
	Points        int           `json:"points"`
	TOI           string        `json:"toi,omitempty"`

	FaceoffWinningPctg StatValue `json:"faceoffWinningPctg,omitempty"`
	SavePctg           StatValue `json:"savePctg,omitempty"`
}

type BoxscoreTeamStats struct {
	Forwards []BoxscorePlayer `json:"forwards"`
	Defense  []BoxscorePlayer `json:"defense"`
	Goalies  []BoxscorePlayer `json:"goalies"`
}

type BoxscoreStats struct {
	HomeTeam BoxscoreTeamStats `json:"homeTeam"`
	AwayTeam BoxscoreTeamStats `json:"awayTeam"`
}

// Boxscore is the boxscore resource (gamecenter/{id}/boxscore).
type Boxscore struct {
	ID                int64         `json:"id"`
	GameState         string        `json:"gameState"`
	HomeTeam          TeamSide      `json:"homeTeam"`
	AwayTeam          TeamSide      `json:"awayTeam"`
	PlayerByGameStats BoxscoreStats `json:"playerByGameStats"`
}

// Shift is one row of the shift chart resource.
type Shift struct {
	ID        int64  `json:"id"`
	GameID    int64  `json:"gameId"`
	PlayerID  int64  `json:"playerId"`
	TeamAbbr  string `json:"teamAbbrev"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Period    int    `json:"period"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Duration  string `json:"duration"`
}

type ShiftChart struct {
	Data  []Shift `json:"data"`
	Total int     `json:"total"`
}

// ScheduleGame is one game row in a club schedule.
type ScheduleGame struct {
	ID           int64    `json:"id"`
	GameDate     string   `json:"gameDate"`
	GameState    string   `json:"gameState"`
	StartTimeUTC string   `json:"startTimeUTC"`
	HomeTeam     TeamSide `json:"homeTeam"`
	AwayTeam     TeamSide `json:"awayTeam"`
}

// ClubSchedule is the week schedule resource (club-schedule/{team}/week/now).
type ClubSchedule struct {
	ClubTimezone string         `json:"clubTimezone,omitempty"`
	Games        []ScheduleGame `json:"games"`
}

// Snapshot bundles one point-in-time fetch of a game's resources.
// Boxscore and Shifts are only populated for the watched game.
type Snapshot struct {
	GameID     int64
	Landing    *Landing
	PlayByPlay *PlayByPlay
	Boxscore   *Boxscore
	Shifts     *ShiftChart
}
