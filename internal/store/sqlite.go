// Package store persists webhook rules, the dedup ledger, and delivery logs
// in a single sqlite database file.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "pucktrack/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store: sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &Store{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Rules ----

const ruleCols = `id, team_abbrev, event_type, target_url, payload_format,
	is_enabled, COALESCE(name,''), delay_seconds, COALESCE(custom_template,''),
	created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (Rule, error) {
	var (
		r                  Rule
		enabled            int
		createdMS, updatMS int64
	)
	err := row.Scan(&r.ID, &r.TeamAbbrev, &r.EventType, &r.TargetURL, &r.PayloadFormat,
		&enabled, &r.Name, &r.DelaySeconds, &r.CustomTemplate, &createdMS, &updatMS)
	if err != nil {
		return Rule{}, err
	}
	r.IsEnabled = enabled != 0
	r.CreatedAt = time.UnixMilli(createdMS)
	r.UpdatedAt = time.UnixMilli(updatMS)
	return r, nil
}

func (s *Store) CreateRule(ctx context.Context, r Rule) (int64, error) {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = now
	}
	if strings.TrimSpace(r.PayloadFormat) == "" {
		r.PayloadFormat = FormatGeneric
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_rules(team_abbrev, event_type, target_url, payload_format,
		    is_enabled, name, delay_seconds, custom_template, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		strings.ToUpper(r.TeamAbbrev), r.EventType, r.TargetURL, r.PayloadFormat,
		boolInt(r.IsEnabled), nullStr(r.Name), r.DelaySeconds, nullStr(r.CustomTemplate),
		r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateRule(ctx context.Context, r Rule) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE webhook_rules SET team_abbrev=?, event_type=?, target_url=?,
		    payload_format=?, is_enabled=?, name=?, delay_seconds=?,
		    custom_template=?, updated_at=?
		 WHERE id=?`,
		strings.ToUpper(r.TeamAbbrev), r.EventType, r.TargetURL, r.PayloadFormat,
		boolInt(r.IsEnabled), nullStr(r.Name), r.DelaySeconds, nullStr(r.CustomTemplate),
		time.Now().UnixMilli(), r.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhook_rules WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleCols+` FROM webhook_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// EnabledRulesByTeam returns all enabled rules for one team in a single
// query, grouped by event type. This is the hot path during a poll burst.
func (s *Store) EnabledRulesByTeam(ctx context.Context, teamAbbrev string) (map[string][]Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleCols+` FROM webhook_rules
		 WHERE is_enabled = 1 AND team_abbrev = ?
		 ORDER BY id`,
		strings.ToUpper(teamAbbrev))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out[r.EventType] = append(out[r.EventType], r)
	}
	return out, rows.Err()
}

// SubscribedTeams returns the distinct team abbrevs with at least one
// enabled rule (the background-live scan set).
func (s *Store) SubscribedTeams(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT team_abbrev FROM webhook_rules WHERE is_enabled = 1 ORDER BY team_abbrev`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- Dedup ledger ----

// ProcessedEventIDs returns the set of already-processed event ids for a
// game in one query.
func (s *Store) ProcessedEventIDs(ctx context.Context, gameID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id FROM processed_events WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// MarkProcessed inserts ledger rows in one transaction and reports which
// event ids this call actually inserted. A uniqueness conflict means a
// concurrent tick already owns the event; the row is silently skipped and
// left out of the returned set, so the loser never dispatches it.
func (s *Store) MarkProcessed(ctx context.Context, evs []ProcessedEvent) (map[string]struct{}, error) {
	won := map[string]struct{}{}
	if len(evs) == 0 {
		return won, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO processed_events(game_id, event_id, event_type, processed_at)
		 VALUES(?,?,?,?)
		 ON CONFLICT(game_id, event_id) DO NOTHING`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, e := range evs {
		at := e.ProcessedAt
		if at.IsZero() {
			at = time.Now()
		}
		res, err := stmt.ExecContext(ctx, e.GameID, e.EventID, e.EventType, at.UnixMilli())
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			won[e.EventID] = struct{}{}
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return won, nil
}

// IsProcessed is a point membership probe (tests and the management surface;
// the diff engine uses the bulk query).
func (s *Store) IsProcessed(ctx context.Context, gameID int64, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_events WHERE game_id = ? AND event_id = ?`,
		gameID, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteProcessedBefore removes ledger rows strictly older than cutoff.
func (s *Store) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM processed_events WHERE processed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- Delivery logs ----

func (s *Store) AppendLog(ctx context.Context, l Log) error {
	at := l.TriggeredAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_logs(rule_id, event_type, game_id, success,
		    http_status, error, triggered_at, description)
		 VALUES(?,?,?,?,?,?,?,?)`,
		l.RuleID, l.EventType, nullInt64(l.GameID), boolInt(l.Success),
		nullInt(l.HTTPStatus), nullStr(l.Error), at.UnixMilli(), l.Description,
	)
	return err
}

// LogsForRule returns recent delivery logs for one rule, newest first.
func (s *Store) LogsForRule(ctx context.Context, ruleID int64, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule_id, event_type, COALESCE(game_id,0), success,
		    COALESCE(http_status,0), COALESCE(error,''), triggered_at, description
		 FROM webhook_logs WHERE rule_id = ?
		 ORDER BY triggered_at DESC, id DESC LIMIT ?`,
		ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		var (
			l       Log
			success int
			atMS    int64
		)
		if err := rows.Scan(&l.ID, &l.RuleID, &l.EventType, &l.GameID, &success,
			&l.HTTPStatus, &l.Error, &atMS, &l.Description); err != nil {
			return nil, err
		}
		l.Success = success != 0
		l.TriggeredAt = time.UnixMilli(atMS)
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteLogsBefore removes log rows strictly older than cutoff.
func (s *Store) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM webhook_logs WHERE triggered_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---- helpers ----

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
