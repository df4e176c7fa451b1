package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Invite    InviteConfig    `mapstructure:"invite"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回 postgres 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// InviteConfig 批量邀请引擎参数
type InviteConfig struct {
	MaxBatchSize         int           `mapstructure:"max_batch_size"`
	DefaultExpiresInDays int           `mapstructure:"default_expires_in_days"`
	Concurrency          int           `mapstructure:"concurrency"`
	Retries              int           `mapstructure:"retries"`
	Backoff              time.Duration `mapstructure:"backoff"`
	HeartbeatInterval    time.Duration `mapstructure:"heartbeat_interval"`
	SubscriberBuffer     int           `mapstructure:"subscriber_buffer"`
	AcceptBaseURL        string        `mapstructure:"accept_base_url"`
}

type NotifierConfig struct {
	Kind       string        `mapstructure:"kind"` // log | webhook
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "invitebatch.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "invitebatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.status_ttl", 10*time.Minute)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "invitebatch")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "invitebatch")

	v.SetDefault("rate_limit.rps", 2)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("invite.max_batch_size", 200)
	v.SetDefault("invite.default_expires_in_days", 7)
	v.SetDefault("invite.concurrency", 5)
	v.SetDefault("invite.retries", 2)
	v.SetDefault("invite.backoff", 500*time.Millisecond)
	v.SetDefault("invite.heartbeat_interval", 15*time.Second)
	v.SetDefault("invite.subscriber_buffer", 64)
	v.SetDefault("invite.accept_base_url", "http://localhost:3000/invites/accept")

	v.SetDefault("notifier.kind", "log")
	v.SetDefault("notifier.webhook_url", "")
	v.SetDefault("notifier.timeout", 10*time.Second)
}

// Load 读取配置文件（可选）并叠加 APP_ 前缀的环境变量
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Invite.Concurrency <= 0 {
		return fmt.Errorf("invite.concurrency must be positive, got %d", c.Invite.Concurrency)
	}
	if c.Invite.Retries < 0 {
		return fmt.Errorf("invite.retries must not be negative, got %d", c.Invite.Retries)
	}
	if c.Invite.MaxBatchSize <= 0 {
		return fmt.Errorf("invite.max_batch_size must be positive, got %d", c.Invite.MaxBatchSize)
	}
	switch c.Notifier.Kind {
	case "log":
	case "webhook":
		if c.Notifier.WebhookURL == "" {
			return fmt.Errorf("notifier.webhook_url is required for webhook notifier")
		}
	default:
		return fmt.Errorf("unknown notifier kind %q", c.Notifier.Kind)
	}
	return nil
}
