package config

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// API configures the upstream NHL snapshot API client and its cache.
	API APIConfig `json:"api"`

	// Poller controls tick cadence, schedule re-scan, and retention sweeps.
	Poller PollerConfig `json:"poller"`

	// Dispatch controls webhook delivery (retry/timeout/workers).
	Dispatch DispatchConfig `json:"dispatch"`

	Storage StorageConfig `json:"storage"`

	Pprof *PprofConfig `json:"pprof,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// APIConfig configures the upstream read API.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - base_url: "https://api-web.nhle.com/v1"
//   - request_timeout: "10s"
//   - static_ttl: "1h"   (schedules, rosters, standings)
//   - live_ttl: "2s"     (landing, play-by-play, boxscore, shifts)
//   - rate_per_sec: 10
type APIConfig struct {
	BaseURL        string `json:"base_url,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	StaticTTL      string `json:"static_ttl,omitempty"`
	LiveTTL        string `json:"live_ttl,omitempty"`
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
}

// PollerConfig controls the adaptive polling loop.
//
// Defaults:
//   - live_interval: "3s"      (watched or background-live game in progress)
//   - idle_interval: "30s"     (nothing live)
//   - error_cooldown: "5s"     (after a failed tick)
//   - scan_interval: "60s"     (re-scan subscribed team schedules)
//   - retention_interval: "6h" (dedup ledger + webhook log sweeps)
//   - processed_retention: "168h" (7 days)
//   - log_retention: "336h"       (14 days)
//   - powerplay_key: "clock"   ("clock" or "strength", see diff engine)
type PollerConfig struct {
	LiveInterval       string `json:"live_interval,omitempty"`
	IdleInterval       string `json:"idle_interval,omitempty"`
	ErrorCooldown      string `json:"error_cooldown,omitempty"`
	ScanInterval       string `json:"scan_interval,omitempty"`
	RetentionInterval  string `json:"retention_interval,omitempty"`
	ProcessedRetention string `json:"processed_retention,omitempty"`
	LogRetention       string `json:"log_retention,omitempty"`
	PowerPlayKey       string `json:"powerplay_key,omitempty"`
}

// DispatchConfig controls the webhook delivery pipeline.
//
// MaxAttempts counts total POSTs per delivery (default 3). RetryBase is the
// base for the linear backoff: delay = retry_base * attempt (default "2s").
type DispatchConfig struct {
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	RetryBase   string `json:"retry_base,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
}

// StorageConfig controls the sqlite persistence layer.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:6060"
}
