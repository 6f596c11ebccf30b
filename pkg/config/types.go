package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Stream   StreamConfig   `yaml:"stream"`
	Seed     SeedConfig     `yaml:"seed"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Sensor   SensorConfig   `yaml:"sensor"`
}

// ServerConfig holds listener and timeout settings.
type ServerConfig struct {
	Address      string    `yaml:"address"`
	Port         int       `yaml:"port"`
	ReadTimeout  Duration  `yaml:"read_timeout"`
	WriteTimeout Duration  `yaml:"write_timeout"`
	IdleTimeout  Duration  `yaml:"idle_timeout"`
	MaxBodySize  SizeBytes `yaml:"max_body_size"`
}

// SecurityConfig holds CORS, rate limiting and the identity cookie.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Cookie CookieConfig `yaml:"cookie"`
}

// CookieConfig names the identity cookie and how long set-cookie keeps it.
type CookieConfig struct {
	Name   string   `yaml:"name"`
	MaxAge Duration `yaml:"max_age"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StreamConfig controls reply pacing.
type StreamConfig struct {
	Duration Duration `yaml:"duration"`
}

// SeedConfig controls the demo data loaded at startup. Enabled is a pointer
// so an explicit false in a file survives defaulting.
type SeedConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether seeding is on; unset means on.
func (s SeedConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ArchiveConfig holds the idle-thread archiver schedule.
type ArchiveConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron"`
	IdleAfter Duration `yaml:"idle_after"`
}

// SensorConfig holds the memory sensor that gates readiness.
type SensorConfig struct {
	PollInterval   Duration  `yaml:"poll_interval"`
	MemHigh        SizeBytes `yaml:"mem_high"`
	RecoveryWindow Duration  `yaml:"recovery_window"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "4MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := ParseSizeBytes(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSizeBytes parses "4MB", "512KiB" or a plain byte count.
func ParseSizeBytes(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

func (s SizeBytes) MarshalYAML() (interface{}, error) { return s.String(), nil }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDuration accepts Go duration syntax or numeric seconds.
func ParseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalYAML() (interface{}, error) { return d.String(), nil }
