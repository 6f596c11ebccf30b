package config

import (
	"fmt"
	"os"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddress      = "0.0.0.0"
	defaultPort         = 8000
	defaultReadTimeout  = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultMaxBodySize  = 1 << 20 // 1 MiB
	defaultRateRPS      = 50
	defaultRateBurst    = 100
	defaultCookieName   = "user_id"
	defaultCookieMaxAge = 30 * 24 * time.Hour
	defaultLogLevel     = "info"
	defaultStream       = 10 * time.Second
	defaultArchiveCron  = "*/5 * * * *"
	defaultArchiveIdle  = 24 * time.Hour
	defaultSensorPoll   = 5 * time.Second
	defaultSensorWindow = 30 * time.Second
)

// DefaultAllowedOrigins are the local frontend dev servers.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Addr returns the HTTP server address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(defaultReadTimeout)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(defaultIdleTimeout)
	}
	if c.Server.MaxBodySize == 0 {
		c.Server.MaxBodySize = SizeBytes(defaultMaxBodySize)
	}

	if len(c.Security.CORS.AllowedOrigins) == 0 {
		c.Security.CORS.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Security.RateLimit.RPS <= 0 {
		c.Security.RateLimit.RPS = defaultRateRPS
	}
	if c.Security.RateLimit.Burst <= 0 {
		c.Security.RateLimit.Burst = defaultRateBurst
	}
	if c.Security.Cookie.Name == "" {
		c.Security.Cookie.Name = defaultCookieName
	}
	if c.Security.Cookie.MaxAge == 0 {
		c.Security.Cookie.MaxAge = Duration(defaultCookieMaxAge)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Stream.Duration == 0 {
		c.Stream.Duration = Duration(defaultStream)
	}
	if c.Seed.Enabled == nil {
		on := true
		c.Seed.Enabled = &on
	}
	if c.Archive.Cron == "" {
		c.Archive.Cron = defaultArchiveCron
	}
	if c.Archive.IdleAfter == 0 {
		c.Archive.IdleAfter = Duration(defaultArchiveIdle)
	}
	if c.Sensor.PollInterval == 0 {
		c.Sensor.PollInterval = Duration(defaultSensorPoll)
	}
	if c.Sensor.RecoveryWindow == 0 {
		c.Sensor.RecoveryWindow = Duration(defaultSensorWindow)
	}
}

// ValidateConfig fills in missing defaults and returns an error if any
// value is invalid.
func (c *Config) ValidateConfig() error {
	c.applyDefaults()

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Stream.Duration.Duration() <= 0 {
		return fmt.Errorf("invalid stream.duration: must be positive, got %s", c.Stream.Duration)
	}
	// a write timeout would cut every stream short
	if wt := c.Server.WriteTimeout.Duration(); wt > 0 && wt <= c.Stream.Duration.Duration() {
		return fmt.Errorf("server.write_timeout (%s) must be 0 or longer than stream.duration (%s)", wt, c.Stream.Duration)
	}
	if c.Server.ReadTimeout.Duration() < 0 || c.Server.IdleTimeout.Duration() < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if c.Security.Cookie.MaxAge.Duration() < 0 {
		return fmt.Errorf("invalid security.cookie.max_age: %s", c.Security.Cookie.MaxAge)
	}
	if !gronx.New().IsValid(c.Archive.Cron) {
		return fmt.Errorf("invalid archive.cron: not a valid cron expression")
	}
	if c.Archive.IdleAfter.Duration() < 0 {
		return fmt.Errorf("invalid archive.idle_after: must be positive")
	}
	if c.Sensor.PollInterval.Duration() < 0 || c.Sensor.RecoveryWindow.Duration() < 0 || c.Sensor.MemHigh < 0 {
		return fmt.Errorf("sensor values must not be negative")
	}
	return nil
}
