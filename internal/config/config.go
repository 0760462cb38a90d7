package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// InstanceID names this process as a room owner. Defaults to the host name.
		InstanceID string `yaml:"instance_id"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		Deck string `yaml:"deck"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Rooms struct {
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"rooms"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero Config so
// the service can run on flags and defaults alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// InstanceID returns configured, or the host name when it is empty. An empty
// result leaves the room store to pick a random id.
func InstanceID(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}
