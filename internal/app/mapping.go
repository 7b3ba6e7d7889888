package app

import (
	"strings"
	"time"

	"pucktrack/internal/config"
	"pucktrack/internal/diff"
	"pucktrack/internal/dispatch"
	"pucktrack/internal/nhl"
	"pucktrack/internal/observability/pprof"
	"pucktrack/internal/poller"
	"pucktrack/internal/store"
)

// Mapping helpers translate the raw (stringly-typed) config file sections
// into the typed service configs. Each helper validates durations so the
// hot-reload validator can reject a bad file before commit.

func mapClientConfig(cfg *config.Config) (nhl.ClientConfig, error) {
	timeout, err := config.ParseDurationOrDefault("api.request_timeout", cfg.API.RequestTimeout, 10*time.Second)
	if err != nil {
		return nhl.ClientConfig{}, err
	}
	return nhl.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		RequestTimeout: timeout,
		RatePerSec:     cfg.API.RatePerSec,
	}, nil
}

func mapCacheTTLs(cfg *config.Config) (staticTTL, liveTTL time.Duration, err error) {
	staticTTL, err = config.ParseDurationOrDefault("api.static_ttl", cfg.API.StaticTTL, time.Hour)
	if err != nil {
		return 0, 0, err
	}
	liveTTL, err = config.ParseDurationOrDefault("api.live_ttl", cfg.API.LiveTTL, 2*time.Second)
	if err != nil {
		return 0, 0, err
	}
	return staticTTL, liveTTL, nil
}

func mapPollerConfig(cfg *config.Config) (poller.Config, error) {
	p := cfg.Poller
	var out poller.Config
	var err error
	if out.LiveInterval, err = config.ParseDurationOrDefault("poller.live_interval", p.LiveInterval, 3*time.Second); err != nil {
		return out, err
	}
	if out.IdleInterval, err = config.ParseDurationOrDefault("poller.idle_interval", p.IdleInterval, 30*time.Second); err != nil {
		return out, err
	}
	if out.ErrorCooldown, err = config.ParseDurationOrDefault("poller.error_cooldown", p.ErrorCooldown, 5*time.Second); err != nil {
		return out, err
	}
	if out.ScanInterval, err = config.ParseDurationOrDefault("poller.scan_interval", p.ScanInterval, time.Minute); err != nil {
		return out, err
	}
	if out.RetentionInterval, err = config.ParseDurationOrDefault("poller.retention_interval", p.RetentionInterval, 6*time.Hour); err != nil {
		return out, err
	}
	if out.ProcessedRetention, err = config.ParseDurationOrDefault("poller.processed_retention", p.ProcessedRetention, 7*24*time.Hour); err != nil {
		return out, err
	}
	if out.LogRetention, err = config.ParseDurationOrDefault("poller.log_retention", p.LogRetention, 14*24*time.Hour); err != nil {
		return out, err
	}
	return out, nil
}

func mapPowerPlayKey(cfg *config.Config) diff.PowerPlayKeyPolicy {
	if strings.EqualFold(strings.TrimSpace(cfg.Poller.PowerPlayKey), string(diff.KeyByStrength)) {
		return diff.KeyByStrength
	}
	return diff.KeyByClock
}

func mapDispatchConfig(cfg *config.Config) (dispatch.Config, error) {
	d := cfg.Dispatch
	retryBase, err := config.ParseDurationOrDefault("dispatch.retry_base", d.RetryBase, 2*time.Second)
	if err != nil {
		return dispatch.Config{}, err
	}
	sendTimeout, err := config.ParseDurationOrDefault("dispatch.send_timeout", d.SendTimeout, 10*time.Second)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		Workers:     d.Workers,
		QueueSize:   d.QueueSize,
		MaxAttempts: d.MaxAttempts,
		RetryBase:   retryBase,
		SendTimeout: sendTimeout,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (store.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return store.Config{}, err
	}
	path := strings.TrimSpace(cfg.Storage.Path)
	if path == "" {
		path = "./pucktrack.db"
	}
	return store.Config{Path: path, BusyTimeout: busy}, nil
}

func mapPprofConfig(cfg *config.Config) pprof.Config {
	if cfg.Pprof == nil {
		return pprof.Config{}
	}
	return pprof.Config{Enabled: cfg.Pprof.Enabled, Addr: cfg.Pprof.Addr}
}
