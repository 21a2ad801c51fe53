package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: Load creates a default config on first run; Save writes it
// atomically with 0600 permissions since it may hold credentials.

// RedisConfig configures the redis store driver.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// MinioConfig configures the S3-compatible store driver.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// StoreConfig selects where the student and booking collections live.
type StoreConfig struct {
	// Driver is one of "file" (default), "redis", "minio", "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the data directory of the file driver.
	Path  string      `yaml:"path" json:"path"`
	Redis RedisConfig `yaml:"redis" json:"redis"`
	Minio MinioConfig `yaml:"minio" json:"minio"`
}

// JobsConfig holds cron specs for background jobs. An empty spec disables
// the job.
type JobsConfig struct {
	Snapshot      string `yaml:"snapshot" json:"snapshot"`
	KeepSnapshots int    `yaml:"keep_snapshots" json:"keep_snapshots"`
	Digest        string `yaml:"digest" json:"digest"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address of the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// WeekStart controls the first column of month grids:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// ConfirmTTL is how long a delete confirmation token stays valid.
	ConfirmTTL time.Duration `yaml:"confirm_ttl" json:"confirm_ttl"`

	// CalendarName is the X-WR-CALNAME of the exported ICS feed.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	Store StoreConfig `yaml:"store" json:"store"`
	Jobs  JobsConfig  `yaml:"jobs" json:"jobs"`

	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// RateLimitPerMinute caps requests per client IP; 0 disables it.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		LogLevel:     "info",
		WeekStart:    "sunday",
		ConfirmTTL:   5 * time.Minute,
		CalendarName: "レッスン予約",
		Store: StoreConfig{
			Driver: "file",
			Path:   "./data",
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "lessoncal:"},
			Minio:  MinioConfig{Bucket: "lessoncal"},
		},
		Jobs: JobsConfig{
			Snapshot:      "0 3 * * *",
			KeepSnapshots: 14,
			Digest:        "0 7 * * *",
		},
		CORSOrigins:        []string{},
		RateLimitPerMinute: 120,
		BasicAuth:          nil,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		// Unknown value; the month grid falls back to Sunday first.
		c.WeekStart = def.WeekStart
	}
	if c.ConfirmTTL <= 0 {
		c.ConfirmTTL = def.ConfirmTTL
	}
	if c.CalendarName == "" {
		c.CalendarName = def.CalendarName
	}

	switch c.Store.Driver {
	case "file", "redis", "minio", "memory":
	default:
		c.Store.Driver = def.Store.Driver
	}
	if c.Store.Path == "" {
		c.Store.Path = def.Store.Path
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = def.Store.Redis.Addr
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = def.Store.Redis.Prefix
	}
	if c.Store.Minio.Bucket == "" {
		c.Store.Minio.Bucket = def.Store.Minio.Bucket
	}

	if c.Jobs.KeepSnapshots <= 0 {
		c.Jobs.KeepSnapshots = def.Jobs.KeepSnapshots
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}
}

// WeekStartDay returns WeekStart as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Env variable names read by ApplyEnv.
const (
	EnvListen         = "LESSONCAL_LISTEN"
	EnvLogLevel       = "LESSONCAL_LOG_LEVEL"
	EnvStoreDriver    = "LESSONCAL_STORE_DRIVER"
	EnvRedisAddr      = "LESSONCAL_REDIS_ADDR"
	EnvRedisPassword  = "LESSONCAL_REDIS_PASSWORD"
	EnvRedisDB        = "LESSONCAL_REDIS_DB"
	EnvMinioEndpoint  = "LESSONCAL_MINIO_ENDPOINT"
	EnvMinioAccessKey = "LESSONCAL_MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "LESSONCAL_MINIO_SECRET_KEY"
	EnvBasicAuthUser  = "LESSONCAL_BASIC_AUTH_USER"
	EnvBasicAuthPass  = "LESSONCAL_BASIC_AUTH_PASSWORD"
)

// ApplyEnv loads the optional dotenv files (a missing file is not an
// error) and then overrides fields from LESSONCAL_* variables, so secrets
// can stay out of the YAML file.
func (c *Config) ApplyEnv(dotenvFiles ...string) error {
	for _, f := range dotenvFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	setString(&c.Listen, EnvListen)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.Store.Driver, EnvStoreDriver)
	setString(&c.Store.Redis.Addr, EnvRedisAddr)
	setString(&c.Store.Redis.Password, EnvRedisPassword)
	setString(&c.Store.Minio.Endpoint, EnvMinioEndpoint)
	setString(&c.Store.Minio.AccessKey, EnvMinioAccessKey)
	setString(&c.Store.Minio.SecretKey, EnvMinioSecretKey)

	if v := os.Getenv(EnvRedisDB); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(EnvRedisDB + " must be an integer")
		}
		c.Store.Redis.DB = n
	}

	user, pass := os.Getenv(EnvBasicAuthUser), os.Getenv(EnvBasicAuthPass)
	if user != "" && pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}

	c.Normalize()
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path via a temp
// file in the same directory and a rename, leaving the file with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lessoncal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
