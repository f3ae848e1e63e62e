package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "typecore"

type Config struct {
	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)

	DataDir  string `yaml:"data_dir"`  // catalog and config live here
	CacheDir string `yaml:"cache_dir"` // materialized remote fonts

	Catalog    CatalogConfig    `yaml:"catalog"`
	Google     GoogleConfig     `yaml:"google"`
	Fontsource FontsourceConfig `yaml:"fontsource"`
	Sync       SyncConfig       `yaml:"sync"`
	HTTP       HTTPConfig       `yaml:"http"`
	Server     ServerConfig     `yaml:"server"`
}

type CatalogConfig struct {
	Backend string      `yaml:"backend"` // "file" | "redis"
	Path    string      `yaml:"path"`    // YAML catalog file (file backend)
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr           string        `yaml:"addr"` // ex: "localhost:6379"
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // ex: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // total time to retry connecting
	RetryInterval  time.Duration `yaml:"retry_interval"`  // initial wait between retries, grows exponentially
	MaxWait        time.Duration `yaml:"max_wait"`        // max wait between retries
	PingTimeout    time.Duration `yaml:"ping_timeout"`    // timeout for each ping attempt
}

type GoogleConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Sort     string `yaml:"sort"`
}

type FontsourceConfig struct {
	Endpoint string `yaml:"endpoint"`
	CDN      string `yaml:"cdn"`
}

type SyncConfig struct {
	Limit int `yaml:"limit"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	dataDir := defaultDir(os.UserConfigDir)
	return &Config{
		LogLevel:  "info",
		PrettyLog: true,
		DataDir:   dataDir,
		Catalog: CatalogConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:           "localhost:6379",
				DialTimeout:    5 * time.Second,
				ConnectTimeout: 30 * time.Second,
				RetryInterval:  2 * time.Second,
				MaxWait:        10 * time.Second,
				PingTimeout:    5 * time.Second,
			},
		},
		Google: GoogleConfig{
			Endpoint: "https://www.googleapis.com/webfonts/v1/webfonts",
			Sort:     "popularity",
		},
		Fontsource: FontsourceConfig{
			Endpoint: "https://api.fontsource.org/v1/fonts",
			CDN:      "https://cdn.jsdelivr.net/fontsource/fonts",
		},
		Sync:   SyncConfig{Limit: 100},
		HTTP:   HTTPConfig{Timeout: 30 * time.Second},
		Server: ServerConfig{Listen: "127.0.0.1:7117"},
	}
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(os.UserConfigDir), "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and
// TYPECORE_* environment variables, in that order. An empty path reads
// DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getenv("TYPECORE_LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("TYPECORE_PRETTY_LOG", c.PrettyLog)
	c.DataDir = getenv("TYPECORE_DATA_DIR", c.DataDir)
	c.CacheDir = getenv("TYPECORE_CACHE_DIR", c.CacheDir)

	c.Catalog.Backend = getenv("TYPECORE_CATALOG_BACKEND", c.Catalog.Backend)
	c.Catalog.Path = getenv("TYPECORE_CATALOG_PATH", c.Catalog.Path)

	r := &c.Catalog.Redis
	r.Addr = getenv("TYPECORE_REDIS_ADDR", r.Addr)
	r.Username = getenv("TYPECORE_REDIS_USERNAME", r.Username)
	r.Password = getenv("TYPECORE_REDIS_PASSWORD", r.Password)
	r.DB = getenvInt("TYPECORE_REDIS_DB", r.DB)
	r.DialTimeout = mustDuration("TYPECORE_REDIS_DIAL_TIMEOUT", r.DialTimeout)
	r.ConnectTimeout = mustDuration("TYPECORE_REDIS_CONNECT_TIMEOUT", r.ConnectTimeout)
	r.RetryInterval = mustDuration("TYPECORE_REDIS_RETRY_INTERVAL", r.RetryInterval)
	r.MaxWait = mustDuration("TYPECORE_REDIS_MAX_WAIT", r.MaxWait)
	r.PingTimeout = mustDuration("TYPECORE_REDIS_PING_TIMEOUT", r.PingTimeout)

	c.Google.APIKey = getenv("TYPECORE_GOOGLE_API_KEY", c.Google.APIKey)
	c.Google.Endpoint = getenv("TYPECORE_GOOGLE_ENDPOINT", c.Google.Endpoint)
	c.Google.Sort = getenv("TYPECORE_GOOGLE_SORT", c.Google.Sort)
	c.Fontsource.Endpoint = getenv("TYPECORE_FONTSOURCE_ENDPOINT", c.Fontsource.Endpoint)
	c.Fontsource.CDN = getenv("TYPECORE_FONTSOURCE_CDN", c.Fontsource.CDN)

	c.Sync.Limit = getenvInt("TYPECORE_SYNC_LIMIT", c.Sync.Limit)
	c.HTTP.Timeout = mustDuration("TYPECORE_HTTP_TIMEOUT", c.HTTP.Timeout)
	c.Server.Listen = getenv("TYPECORE_SERVER_LISTEN", c.Server.Listen)
}

// resolvePaths fills the paths derived from DataDir.
func (c *Config) resolvePaths() {
	if c.CacheDir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			c.CacheDir = filepath.Join(base, appName, "fonts")
		} else {
			c.CacheDir = filepath.Join(c.DataDir, "cache")
		}
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.yaml")
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	switch c.Catalog.Backend {
	case BackendFile:
		if c.Catalog.Path == "" {
			return errors.New("catalog.path is required for the file backend")
		}
	case BackendRedis:
		if c.Catalog.Redis.Addr == "" {
			return errors.New("catalog.redis.addr is required for the redis backend")
		}
		if c.Catalog.Redis.DB < 0 {
			return fmt.Errorf("invalid catalog.redis.db %d", c.Catalog.Redis.DB)
		}
	default:
		return fmt.Errorf("unknown catalog.backend %q", c.Catalog.Backend)
	}
	if c.Sync.Limit < 0 {
		return fmt.Errorf("invalid sync.limit %d", c.Sync.Limit)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("invalid http.timeout %s", c.HTTP.Timeout)
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.Catalog.Redis.Password != "" {
		cp.Catalog.Redis.Password = "***REDACTED***"
	}
	if cp.Google.APIKey != "" {
		cp.Google.APIKey = "***REDACTED***"
	}
	return cp
}

func defaultDir(base func() (string, error)) string {
	dir, err := base()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(dir, appName)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
