package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names an optional YAML file layered between the defaults
// and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Addr      string `koanf:"addr"`
	DBPath    string `koanf:"db_path"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	CFBaseURL         string        `koanf:"cf_base_url"`
	CFCallInterval    time.Duration `koanf:"cf_call_interval"`
	CFTimeout         time.Duration `koanf:"cf_timeout"`
	CFUserDelay       time.Duration `koanf:"cf_user_delay"`
	CFSubmissionLimit int           `koanf:"cf_submission_limit"`

	SyncInterval    time.Duration `koanf:"sync_interval"`
	SyncStaleAfter  time.Duration `koanf:"sync_stale_after"`
	SyncOnStart     bool          `koanf:"sync_on_start"`
	SyncWorkerCount int           `koanf:"sync_worker_count"`
	SyncQueueSize   int           `koanf:"sync_queue_size"`

	HTTPRateLimit int    `koanf:"http_rate_limit"`
	CORSOrigins   string `koanf:"cors_origins"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Addr:              ":8080",
		DBPath:            "file:cftracker.db",
		LogLevel:          "INFO",
		LogFormat:         "console",
		CFBaseURL:         "https://codeforces.com/api",
		CFCallInterval:    2 * time.Second,
		CFTimeout:         15 * time.Second,
		CFUserDelay:       3 * time.Second,
		CFSubmissionLimit: 0,
		SyncInterval:      time.Hour,
		SyncStaleAfter:    24 * time.Hour,
		SyncOnStart:       false,
		SyncWorkerCount:   1,
		SyncQueueSize:     32,
		HTTPRateLimit:     120,
		CORSOrigins:       "*",
	}
}

// knownKeys limits the environment layer to the keys above so unrelated
// variables never reach the config.
var knownKeys = map[string]bool{
	"addr": true, "db_path": true, "log_level": true, "log_format": true,
	"cf_base_url": true, "cf_call_interval": true, "cf_timeout": true,
	"cf_user_delay": true, "cf_submission_limit": true,
	"sync_interval": true, "sync_stale_after": true, "sync_on_start": true,
	"sync_worker_count": true, "sync_queue_size": true,
	"http_rate_limit": true, "cors_origins": true,
}

// Load reads configuration from a .env file (if present), an optional YAML
// file named by CONFIG_PATH, and environment variables, in increasing order
// of priority.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	return cfg, nil
}

func envKey(key string) string {
	key = strings.ToLower(key)
	if knownKeys[key] {
		return key
	}
	return ""
}

// CORSOriginList splits CORS_ORIGINS on commas.
func (c Config) CORSOriginList() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be console or json (got %q)", c.LogFormat))
	}
	if u, err := url.Parse(c.CFBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("CF_BASE_URL must be an absolute URL (got %q)", c.CFBaseURL))
	}
	if c.CFCallInterval < 0 {
		errs = append(errs, errors.New("CF_CALL_INTERVAL cannot be negative"))
	}
	if c.CFTimeout <= 0 {
		errs = append(errs, errors.New("CF_TIMEOUT must be positive"))
	}
	if c.CFUserDelay < 0 {
		errs = append(errs, errors.New("CF_USER_DELAY cannot be negative"))
	}
	if c.CFSubmissionLimit < 0 {
		errs = append(errs, errors.New("CF_SUBMISSION_LIMIT cannot be negative"))
	}
	if c.SyncInterval <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must be positive"))
	}
	if c.SyncStaleAfter <= 0 {
		errs = append(errs, errors.New("SYNC_STALE_AFTER must be positive"))
	}
	if c.SyncWorkerCount < 1 {
		errs = append(errs, fmt.Errorf("SYNC_WORKER_COUNT must be at least 1 (got %d)", c.SyncWorkerCount))
	}
	if c.SyncQueueSize < 1 {
		errs = append(errs, fmt.Errorf("SYNC_QUEUE_SIZE must be at least 1 (got %d)", c.SyncQueueSize))
	}
	if c.HTTPRateLimit < 0 {
		errs = append(errs, errors.New("HTTP_RATE_LIMIT cannot be negative"))
	}

	return errors.Join(errs...)
}
