package nhl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	logx "pucktrack/pkg/logx"
)

const (
	defaultBaseURL   = "https://api-web.nhle.com/v1"
	defaultShiftsURL = "https://api.nhle.com/stats/rest/en/shiftcharts"
	defaultTimeout   = 10 * time.Second
)

// ClientConfig configures the upstream API client.
type ClientConfig struct {
	BaseURL        string
	ShiftsURL      string
	RequestTimeout time.Duration
	RatePerSec     int
}

// Client issues read-only GETs against the snapshot API.
// All calls honor ctx and share one token-bucket limiter.
type Client struct {
	base      string
	shiftsURL string
	hc        *http.Client
	limiter   *rate.Limiter
	log       logx.Logger
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	shifts := strings.TrimSpace(cfg.ShiftsURL)
	if shifts == "" {
		shifts = defaultShiftsURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		base:      base,
		shiftsURL: shifts,
		hc:        &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), rps),
		log:       log,
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("get %s: decode: %w", url, err)
	}
	c.log.Trace("api fetch", logx.String("url", url), logx.Duration("dur", time.Since(start)))
	return nil
}

func (c *Client) GameLanding(ctx context.Context, gameID int64) (*Landing, error) {
	var v Landing
	if err := c.getJSON(ctx, fmt.Sprintf("%s/gamecenter/%d/landing", c.base, gameID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) PlayByPlay(ctx context.Context, gameID int64) (*PlayByPlay, error) {
	var v PlayByPlay
	if err := c.getJSON(ctx, fmt.Sprintf("%s/gamecenter/%d/play-by-play", c.base, gameID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Boxscore(ctx context.Context, gameID int64) (*Boxscore, error) {
	var v Boxscore
	if err := c.getJSON(ctx, fmt.Sprintf("%s/gamecenter/%d/boxscore", c.base, gameID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) ShiftChart(ctx context.Context, gameID int64) (*ShiftChart, error) {
	var v ShiftChart
	url := fmt.Sprintf("%s?cayenneExp=gameId=%d", c.shiftsURL, gameID)
	if err := c.getJSON(ctx, url, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) ClubScheduleWeek(ctx context.Context, teamAbbrev string) (*ClubSchedule, error) {
	var v ClubSchedule
	url := fmt.Sprintf("%s/club-schedule/%s/week/now", c.base, strings.ToUpper(teamAbbrev))
	if err := c.getJSON(ctx, url, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
