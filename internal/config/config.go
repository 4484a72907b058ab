package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkglogger "github.com/alumnihub/alumni-backend/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Config is the resolved application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Chat      ChatConfig      `yaml:"chat"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Env  string `yaml:"env"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
}

// GetDSN builds the MySQL DSN
func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn int    `yaml:"expires_in"`
}

// AuthConfig selects the AuthProvider once at startup
type AuthConfig struct {
	Mode      string `yaml:"mode"` // "token" or "fixed"
	FixedUID  string `yaml:"fixed_uid"`
	FixedRole string `yaml:"fixed_role"`
}

// ChatConfig drives the delivery router
type ChatConfig struct {
	Mode               string `yaml:"mode"` // "rest" or "live"
	StepTimeoutSeconds int    `yaml:"step_timeout_seconds"`
	FacadeBaseURL      string `yaml:"facade_base_url"`
	BreakerMaxFailures int    `yaml:"breaker_max_failures"`
	BreakerTimeoutSec  int    `yaml:"breaker_timeout_seconds"`
}

// StepTimeout returns the per-backend attempt timeout
func (c ChatConfig) StepTimeout() time.Duration {
	if c.StepTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.StepTimeoutSeconds) * time.Second
}

type FanoutConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// RateLimitConfig holds per-minute request budgets; zero disables a limiter
type RateLimitConfig struct {
	LoginPerMinute int `yaml:"login_per_minute"`
	SendPerMinute  int `yaml:"send_per_minute"`
}

type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// IsDevelopment reports whether the server runs in a development environment
func (c *Config) IsDevelopment() bool {
	switch c.Server.Env {
	case "", "local", "dev", "development":
		return true
	}
	return false
}

// Default returns a configuration usable for local development
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, Env: "local"},
		Database: DatabaseConfig{Host: "localhost", Port: 3306, User: "root", DBName: "alumni", MaxIdleConns: 10, MaxOpenConns: 50, ConnMaxLifetime: 300},
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017", Database: "alumni", Collection: "messages"},
		Redis:    RedisConfig{Host: "localhost", Port: 6379, PoolSize: 20},
		JWT:      JWTConfig{Secret: "change-me", ExpiresIn: 86400},
		Auth:     AuthConfig{Mode: "token"},
		Chat:     ChatConfig{Mode: "rest", StepTimeoutSeconds: 5, FacadeBaseURL: "http://localhost:8080", BreakerMaxFailures: 5, BreakerTimeoutSec: 30},
		Fanout:   FanoutConfig{Concurrency: 8},
		CORS:     CORSConfig{AllowOrigins: "http://localhost:3000"},
		RateLimit: RateLimitConfig{
			LoginPerMinute: 10,
			SendPerMinute:  60,
		},
	}
}

// Load reads the YAML file at path (missing file falls back to defaults) and applies env overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		pkglogger.Warn("config file %s not found, using defaults", path)
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum-like fields
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "token":
	case "fixed":
		if c.Auth.FixedUID == "" {
			return fmt.Errorf("auth.fixed_uid is required when auth.mode=fixed")
		}
	default:
		return fmt.Errorf("unknown auth.mode %q", c.Auth.Mode)
	}
	if c.Chat.Mode != "rest" && c.Chat.Mode != "live" {
		return fmt.Errorf("unknown chat.mode %q", c.Chat.Mode)
	}
	if c.Auth.Mode == "token" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Env, "APP_ENV")
	setInt(&cfg.Server.Port, "PORT")

	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.DBName, "DB_NAME")

	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DATABASE")

	setString(&cfg.Redis.Host, "REDIS_HOST")
	setInt(&cfg.Redis.Port, "REDIS_PORT")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.JWT.Secret, "JWT_SECRET")

	setString(&cfg.Auth.Mode, "AUTH_MODE")
	setString(&cfg.Auth.FixedUID, "AUTH_FIXED_UID")
	setString(&cfg.Auth.FixedRole, "AUTH_FIXED_ROLE")

	setString(&cfg.Chat.Mode, "CHAT_MODE")
	setString(&cfg.Chat.FacadeBaseURL, "CHAT_FACADE_BASE_URL")

	setString(&cfg.CORS.AllowOrigins, "CORS_ALLOW_ORIGINS")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// LogResolved logs the effective configuration without secrets
func LogResolved(cfg *Config) {
	pkglogger.GetLogger().Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("db_host", cfg.Database.Host).
		Str("db_name", cfg.Database.DBName).
		Str("mongo_db", cfg.Mongo.Database).
		Str("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)).
		Str("auth_mode", cfg.Auth.Mode).
		Str("chat_mode", cfg.Chat.Mode).
		Dur("chat_step_timeout", cfg.Chat.StepTimeout()).
		Int("fanout_concurrency", cfg.Fanout.Concurrency).
		Msg("config resolved")
}
