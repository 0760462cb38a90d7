package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
  public_url: "https://herring.example"
redis:
  addr: "localhost:6379"
  ttl: "2h"
  instance_id: "herring-1"
questions:
  deck: "classic"
  ttl: "5m"
rooms:
  idle_timeout: "30m"
log:
  level: debug
  pretty: true
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Server.PublicURL != "https://herring.example" {
		t.Fatalf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Questions.Deck != "classic" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := InstanceID(cfg.Redis.InstanceID); got != "herring-1" {
		t.Fatalf("expected configured instance id, got %q", got)
	}
	if got := TTLDuration(cfg.Rooms.IdleTimeout, time.Hour); got != 30*time.Minute {
		t.Fatalf("expected 30m idle timeout, got %s", got)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Pretty {
		t.Fatalf("unexpected log section: %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != "" {
		t.Fatalf("expected zero config, got %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %s", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}

func TestInstanceIDDefaultsToHostname(t *testing.T) {
	host, err := os.Hostname()
	if err != nil {
		t.Skipf("no hostname: %v", err)
	}
	if got := InstanceID(""); got != host {
		t.Fatalf("expected host name %q, got %q", host, got)
	}
}
