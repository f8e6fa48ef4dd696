package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the global ~/.lcchat/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`

	// StorePath and MediaDir are shared by every session daemon. Empty
	// values are filled in by the caller from the session layout.
	StorePath     string `toml:"store_path"`
	MediaDir      string `toml:"media_dir"`
	PublicBaseURL string `toml:"public_base_url"`
	HTTPAddr      string `toml:"http_addr"`
	JWTSecret     string `toml:"jwt_secret"`
	LogLevel      string `toml:"log_level"`

	OpTimeout     time.Duration `toml:"op_timeout"`
	SweepInterval time.Duration `toml:"sweep_interval"`
	PollInterval  time.Duration `toml:"poll_interval"`
	ResyncRefs    bool          `toml:"resync_refs"`

	Retry     RetryConfig     `toml:"retry"`
	Redis     RedisConfig     `toml:"redis"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Media     MediaConfig     `toml:"media"`
}

// RetryConfig bounds backing-store retries.
type RetryConfig struct {
	MaxAttempts     int           `toml:"max_attempts"`
	InitialInterval time.Duration `toml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
}

// RedisConfig enables the cross-process change relay when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

// RateLimitConfig holds token bucket settings. A zero rate disables a limiter.
type RateLimitConfig struct {
	RPCPerSecond       float64 `toml:"rpc_per_second"`
	RPCBurst           int     `toml:"rpc_burst"`
	SendPerSecond      float64 `toml:"send_per_second"`
	SendBurst          int     `toml:"send_burst"`
	WSConnectPerSecond float64 `toml:"ws_connect_per_second"`
	WSConnectBurst     int     `toml:"ws_connect_burst"`
}

// MediaConfig limits uploads.
type MediaConfig struct {
	MaxBytes int64 `toml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:      "127.0.0.1:7070",
		LogLevel:      "info",
		OpTimeout:     5 * time.Second,
		SweepInterval: 5 * time.Minute,
		PollInterval:  250 * time.Millisecond,
		Retry: RetryConfig{
			MaxAttempts:     4,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
		Redis: RedisConfig{Channel: "lcchat_changes"},
		RateLimit: RateLimitConfig{
			RPCPerSecond:       30,
			RPCBurst:           60,
			SendPerSecond:      5,
			SendBurst:          20,
			WSConnectPerSecond: 1,
			WSConnectBurst:     5,
		},
		Media: MediaConfig{MaxBytes: 10 << 20},
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve builds the effective configuration: defaults, then the TOML file
// at path when present, then LCCHAT_* variables from the environment and
// from the optional .env file at envPath. Real environment variables win
// over .env entries.
func Resolve(path, envPath string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cfg.PublicBaseURL == "" && cfg.HTTPAddr != "" {
		cfg.PublicBaseURL = "http://" + cfg.HTTPAddr
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LCCHAT_DEFAULT_SESSION": &c.DefaultSession,
		"LCCHAT_STORE_PATH":      &c.StorePath,
		"LCCHAT_MEDIA_DIR":       &c.MediaDir,
		"LCCHAT_PUBLIC_BASE_URL": &c.PublicBaseURL,
		"LCCHAT_HTTP_ADDR":       &c.HTTPAddr,
		"LCCHAT_JWT_SECRET":      &c.JWTSecret,
		"LCCHAT_LOG_LEVEL":       &c.LogLevel,
		"LCCHAT_REDIS_ADDR":      &c.Redis.Addr,
		"LCCHAT_REDIS_PASSWORD":  &c.Redis.Password,
		"LCCHAT_REDIS_CHANNEL":   &c.Redis.Channel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durs := map[string]*time.Duration{
		"LCCHAT_OP_TIMEOUT":     &c.OpTimeout,
		"LCCHAT_SWEEP_INTERVAL": &c.SweepInterval,
		"LCCHAT_POLL_INTERVAL":  &c.PollInterval,
	}
	for key, dst := range durs {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := lookup("LCCHAT_RESYNC_REFS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LCCHAT_RESYNC_REFS: %w", err)
		}
		c.ResyncRefs = b
	}
	if v, ok := lookup("LCCHAT_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LCCHAT_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
