package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Platform PlatformConfig `yaml:"platform"`
	Engine   EngineConfig   `yaml:"engine"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

// PlatformConfig holds the ad platform API connection settings.
type PlatformConfig struct {
	BaseURL        string  `yaml:"base_url"`
	AccessToken    string  `yaml:"access_token"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

func (c *PlatformConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EngineConfig holds automation engine tuning. All due times are computed in
// TenantTimezone and stored normalized to ReferenceTimezone; the two cycles
// only ever compare times in the reference frame.
type EngineConfig struct {
	ReferenceTimezone string `yaml:"reference_timezone"` // storage/comparison frame
	TenantTimezone    string `yaml:"tenant_timezone"`    // frame for revert_at_time rules
	EvaluateEveryMin  int    `yaml:"evaluate_every_min"`
	RevertEveryMin    int    `yaml:"revert_every_min"`
	CycleBudgetMin    int    `yaml:"cycle_budget_min"` // wall-clock budget per invocation
	ObjectConcurrency int    `yaml:"object_concurrency"`
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds"`
}

func (c *EngineConfig) CycleBudget() time.Duration {
	if c.CycleBudgetMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CycleBudgetMin) * time.Minute
}

func (c *EngineConfig) LockTTL() time.Duration {
	if c.LockTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// RedisConfig for the optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "adpilot.db",
		},
		JWT: JWTConfig{
			Secret:     "adpilot-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Platform: PlatformConfig{
			BaseURL:        "https://graph.facebook.com/v19.0",
			TimeoutSeconds: 15,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Engine: EngineConfig{
			ReferenceTimezone: "UTC",
			TenantTimezone:    "Asia/Ho_Chi_Minh",
			EvaluateEveryMin:  5,
			RevertEveryMin:    1,
			CycleBudgetMin:    10,
			ObjectConcurrency: 4,
			LockTTLSeconds:    300,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if baseURL := os.Getenv("PLATFORM_BASE_URL"); baseURL != "" {
		c.Platform.BaseURL = baseURL
	}
	if token := os.Getenv("PLATFORM_ACCESS_TOKEN"); token != "" {
		c.Platform.AccessToken = token
	}
	if tz := os.Getenv("ENGINE_TENANT_TIMEZONE"); tz != "" {
		c.Engine.TenantTimezone = tz
	}
	if tz := os.Getenv("ENGINE_REFERENCE_TIMEZONE"); tz != "" {
		c.Engine.ReferenceTimezone = tz
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
