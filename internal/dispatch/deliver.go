package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pucktrack/internal/audit"
	"pucktrack/internal/events"
	"pucktrack/internal/store"
	logx "pucktrack/pkg/logx"
)

// deliver runs one full delivery: optional delay, format, validate, POST
// with bounded retry, then exactly one log row plus an audit entry.
// Cancellation aborts immediately without logging a failure.
func (s *Service) deliver(ctx context.Context, rule store.Rule, ev events.Event) {
	// config snapshot for this delivery
	s.mu.Lock()
	cfg := s.cfg
	hc := s.hc
	s.mu.Unlock()

	// Pre-dispatch delay (broadcast alignment), cancellable.
	if rule.DelaySeconds > 0 {
		t := time.NewTimer(time.Duration(rule.DelaySeconds) * time.Second)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		case <-t.C:
		}
	}

	outcome := outcome{rule: rule, ev: ev}

	// Reject bad destinations before any network call.
	if err := validateTargetURL(rule.TargetURL); err != nil {
		outcome.err = err
		s.record(ctx, outcome)
		return
	}

	body, contentType, err := s.formatPayload(rule, ev)
	if err != nil {
		outcome.err = fmt.Errorf("format payload: %w", err)
		s.record(ctx, outcome)
		return
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		outcome.attempts = attempt
		status, err := postOnce(ctx, hc, rule.TargetURL, contentType, body, cfg.SendTimeout)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			// Cancellation is control flow, not a delivery failure.
			return
		}
		outcome.status = status
		outcome.err = err
		if err == nil {
			outcome.success = true
			break
		}

		s.log.Debug("webhook send failed",
			logx.Int64("rule_id", rule.ID),
			logx.Int("attempt", attempt),
			logx.Int("max", cfg.MaxAttempts),
			logx.Err(err),
		)
		if attempt >= cfg.MaxAttempts {
			break
		}

		// Linear backoff: base * attempt number.
		t := time.NewTimer(cfg.RetryBase * time.Duration(attempt))
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		case <-t.C:
		}
	}

	s.record(ctx, outcome)
}

type outcome struct {
	rule     store.Rule
	ev       events.Event
	attempts int
	status   int
	success  bool
	err      error
}

// record writes the single per-delivery log row (last attempt's outcome)
// and publishes the same summary to live audit observers.
func (s *Service) record(ctx context.Context, o outcome) {
	now := time.Now()
	desc := fmt.Sprintf("%s %s @ %s (period %d, %s)",
		o.ev.Type, o.ev.Details.Team, o.ev.TimeInPeriod, o.ev.Period, o.rule.TargetURL)

	row := store.Log{
		RuleID:      o.rule.ID,
		EventType:   string(o.ev.Type),
		GameID:      o.ev.GameID,
		Success:     o.success,
		HTTPStatus:  o.status,
		TriggeredAt: now,
		Description: desc,
	}
	if o.err != nil {
		row.Error = o.err.Error()
	}

	// The log write itself must not fail the delivery path.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	if err := s.sink.AppendLog(logCtx, row); err != nil {
		s.log.Warn("webhook log append failed", logx.Int64("rule_id", o.rule.ID), logx.Err(err))
	}
	cancel()

	if o.success {
		s.log.Info("webhook delivered",
			logx.Int64("rule_id", o.rule.ID),
			logx.String("event_type", string(o.ev.Type)),
			logx.Int("attempts", o.attempts),
			logx.Int("status", o.status),
		)
	} else {
		s.log.Warn("webhook delivery failed",
			logx.Int64("rule_id", o.rule.ID),
			logx.String("event_type", string(o.ev.Type)),
			logx.Int("attempts", o.attempts),
			logx.Int("status", o.status),
			logx.Err(o.err),
		)
	}

	if s.bus != nil {
		s.bus.Publish(audit.Entry{
			At:          now,
			RuleID:      o.rule.ID,
			RuleName:    o.rule.Name,
			EventType:   string(o.ev.Type),
			GameID:      o.ev.GameID,
			Success:     o.success,
			HTTPStatus:  o.status,
			Error:       row.Error,
			Attempts:    o.attempts,
			Description: desc,
		})
	}
}

// validateTargetURL accepts only absolute http/https URLs.
func validateTargetURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid target url %q: must be absolute http(s)", raw)
	}
	return nil
}

func postOnce(ctx context.Context, hc *http.Client, target, contentType string, body []byte, timeout time.Duration) (int, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "pucktrack/1.0")

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
