package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THREADSTREAM_"

// DefaultConfigPath is read when --config is not given; a missing file there
// is not an error.
const DefaultConfigPath = "./config.yaml"

// Flags holds the CLI flags bound by the serve command.
type Flags struct {
	Config         string
	Addr           string
	LogLevel       string
	StreamDuration time.Duration
	NoSeed         bool
	Archive        bool

	set *pflag.FlagSet
}

// BindFlags registers the config flags on fs.
func BindFlags(set *pflag.FlagSet) *Flags {
	f := &Flags{set: set}
	set.StringVarP(&f.Config, "config", "c", DefaultConfigPath, "path to config file")
	set.StringVar(&f.Addr, "addr", "", "HTTP listen address (host:port)")
	set.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	set.DurationVar(&f.StreamDuration, "stream-duration", 0, "wall-clock window a reply is streamed over")
	set.BoolVar(&f.NoSeed, "no-seed", false, "start with an empty store")
	set.BoolVar(&f.Archive, "archive", false, "enable the idle-thread archiver")
	return f
}

// Changed reports whether the user set the named flag.
func (f *Flags) Changed(name string) bool {
	if f == nil || f.set == nil {
		return false
	}
	fl := f.set.Lookup(name)
	return fl != nil && fl.Changed
}

// EffectiveConfigResult is the merged configuration plus where it came from.
type EffectiveConfigResult struct {
	Config     *Config
	Addr       string
	ConfigPath string
	Sources    []string // subset of "file", "env", "flags"
}

// Source renders Sources for the banner.
func (e EffectiveConfigResult) Source() string {
	if len(e.Sources) == 0 {
		return "defaults"
	}
	return "defaults+" + strings.Join(e.Sources, "+")
}

// ParseConfigFile loads the file named by the flags. A missing default file
// yields an empty config; a missing explicit file is an error.
func ParseConfigFile(flags *Flags) (*Config, string, bool, error) {
	path := DefaultConfigPath
	explicit := false
	if flags != nil && flags.Config != "" {
		path = flags.Config
		explicit = flags.Changed("config")
	}
	if !explicit {
		if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
			path, explicit = v, true
		}
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return &Config{}, path, false, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, path, false, fmt.Errorf("config file not found: %s", path)
		}
		return nil, path, false, err
	}
	return cfg, path, true, nil
}

// ApplyEnv overlays THREADSTREAM_* variables onto cfg and reports whether
// any were set.
func ApplyEnv(cfg *Config) (bool, error) {
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) (bool, error) {
	used := false
	get := func(key string) string {
		v := strings.TrimSpace(getenv(EnvPrefix + key))
		if v != "" {
			used = true
		}
		return v
	}
	var errs []error
	fail := func(key string, err error) {
		errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
	}
	duration := func(key string, dst *Duration) {
		if v := get(key); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				fail(key, err)
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := get(key); v != "" {
			*dst = parseBool(v)
		}
	}

	if v := get("ADDR"); v != "" {
		host, port, err := splitAddr(v)
		if err != nil {
			fail("ADDR", err)
		} else {
			cfg.Server.Address, cfg.Server.Port = host, port
		}
	} else {
		if v := get("SERVER_ADDRESS"); v != "" {
			cfg.Server.Address = v
		}
		if v := get("SERVER_PORT"); v != "" {
			if p, err := strconv.Atoi(v); err == nil {
				cfg.Server.Port = p
			} else {
				fail("SERVER_PORT", err)
			}
		}
	}
	duration("READ_TIMEOUT", &cfg.Server.ReadTimeout)
	duration("WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	duration("IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	if v := get("MAX_BODY_SIZE"); v != "" {
		if sz, err := ParseSizeBytes(v); err == nil {
			cfg.Server.MaxBodySize = sz
		} else {
			fail("MAX_BODY_SIZE", err)
		}
	}

	if v := get("CORS_ORIGINS"); v != "" {
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := get("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Security.RateLimit.RPS = f
		} else {
			fail("RATE_RPS", err)
		}
	}
	if v := get("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Security.RateLimit.Burst = n
		} else {
			fail("RATE_BURST", err)
		}
	}
	if v := get("COOKIE_NAME"); v != "" {
		cfg.Security.Cookie.Name = v
	}
	duration("COOKIE_MAX_AGE", &cfg.Security.Cookie.MaxAge)

	if v := get("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	duration("STREAM_DURATION", &cfg.Stream.Duration)
	if v := get("SEED_ENABLED"); v != "" {
		on := parseBool(v)
		cfg.Seed.Enabled = &on
	}

	boolean("ARCHIVE_ENABLED", &cfg.Archive.Enabled)
	if v := get("ARCHIVE_CRON"); v != "" {
		cfg.Archive.Cron = v
	}
	duration("ARCHIVE_IDLE_AFTER", &cfg.Archive.IdleAfter)

	duration("SENSOR_POLL_INTERVAL", &cfg.Sensor.PollInterval)
	if v := get("SENSOR_MEM_HIGH"); v != "" {
		if sz, err := ParseSizeBytes(v); err == nil {
			cfg.Sensor.MemHigh = sz
		} else {
			fail("SENSOR_MEM_HIGH", err)
		}
	}
	duration("SENSOR_RECOVERY_WINDOW", &cfg.Sensor.RecoveryWindow)

	return used, errors.Join(errs...)
}

// ApplyFlags overlays the flags the user changed onto cfg.
func ApplyFlags(cfg *Config, flags *Flags) (bool, error) {
	if flags == nil {
		return false, nil
	}
	used := false
	if flags.Changed("addr") {
		host, port, err := splitAddr(flags.Addr)
		if err != nil {
			return false, fmt.Errorf("--addr: %w", err)
		}
		cfg.Server.Address, cfg.Server.Port = host, port
		used = true
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = strings.ToLower(flags.LogLevel)
		used = true
	}
	if flags.Changed("stream-duration") {
		cfg.Stream.Duration = Duration(flags.StreamDuration)
		used = true
	}
	if flags.Changed("no-seed") {
		on := !flags.NoSeed
		cfg.Seed.Enabled = &on
		used = true
	}
	if flags.Changed("archive") {
		cfg.Archive.Enabled = flags.Archive
		used = true
	}
	return used, nil
}

// LoadEffectiveConfig layers defaults, the config file, the environment and
// changed flags, in that order, then validates the result.
func LoadEffectiveConfig(flags *Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	cfg, path, found, err := ParseConfigFile(flags)
	if err != nil {
		return res, err
	}
	res.ConfigPath = path
	if found {
		res.Sources = append(res.Sources, "file")
	}
	envUsed, err := ApplyEnv(cfg)
	if err != nil {
		return res, err
	}
	if envUsed {
		res.Sources = append(res.Sources, "env")
	}
	flagsUsed, err := ApplyFlags(cfg, flags)
	if err != nil {
		return res, err
	}
	if flagsUsed {
		res.Sources = append(res.Sources, "flags")
	}
	if err := cfg.ValidateConfig(); err != nil {
		return res, err
	}
	res.Config = cfg
	res.Addr = cfg.Addr()
	return res, nil
}

// splitAddr accepts "host:port" or ":port".
func splitAddr(a string) (string, int, error) {
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q", p)
	}
	return h, port, nil
}

func parseList(v string) []string {
	var parts []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
