package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: DEBUG
  console: true
api:
  base_url: https://api-web.nhle.com/v1
  rate_per_sec: 5
poller:
  live_interval: 3s
  powerplay_key: strength
dispatch:
  max_attempts: 4
storage:
  path: ./test.db
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.API.RatePerSec != 5 {
		t.Fatalf("rate_per_sec = %d", cfg.API.RatePerSec)
	}
	if cfg.Poller.LiveInterval != "3s" || cfg.Poller.PowerPlayKey != "strength" {
		t.Fatalf("poller = %+v", cfg.Poller)
	}
	if cfg.Dispatch.MaxAttempts != 4 {
		t.Fatalf("max_attempts = %d", cfg.Dispatch.MaxAttempts)
	}
	if cfg.Storage.Path != "./test.db" {
		t.Fatalf("storage path = %q", cfg.Storage.Path)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json",
		`{"logging":{"level":"INFO","console":true},"storage":{"path":"./x.db"}}`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "INFO" || cfg.Storage.Path != "./x.db" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: INFO
  verbosity: high
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"logging":{"level":"INFO"}}{"extra":true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: WARN
storage:
  path: ./x.db
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "3s", want: 3 * time.Second},
		{raw: "  90m ", want: 90 * time.Minute},
		{raw: "168h", want: 7 * 24 * time.Hour},
		{raw: "-1s", wantErr: true},
		{raw: "fast", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("test.field", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("test.field", "", 30*time.Second)
	if err != nil || got != 30*time.Second {
		t.Fatalf("empty = %v, %v; want default", got, err)
	}
	got, err = ParseDurationOrDefault("test.field", "5s", 30*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("explicit = %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("test.field", "nope", time.Second); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
