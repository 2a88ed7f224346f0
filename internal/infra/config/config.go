package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig is the root configuration shared by both binaries. Values load
// from config.yaml when present and are overridable via AUTH_-prefixed
// environment variables (dots replaced with underscores).
type AppConfig struct {
	App         AppSettings         `mapstructure:"app"`
	Postgres    PostgresSettings    `mapstructure:"postgres"`
	Redis       RedisSettings       `mapstructure:"redis"`
	Kafka       KafkaSettings       `mapstructure:"kafka"`
	JWT         JWTSettings         `mapstructure:"jwt"`
	Session     SessionSettings     `mapstructure:"session"`
	ServiceAuth ServiceAuthSettings `mapstructure:"service_auth"`
	OrgService  OrgServiceSettings  `mapstructure:"org_service"`
	RateLimit   RateLimitSettings   `mapstructure:"rate_limit"`
	Argon2      Argon2Settings      `mapstructure:"argon2"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisSettings configures the shared cache used for rate-limit counters and
// the security monitor's observation state.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the audit/security event producer. An empty broker
// list switches the service to a logging stub publisher.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type SessionSettings struct {
	TTL           time.Duration `mapstructure:"ttl"`
	RememberMeTTL time.Duration `mapstructure:"remember_me_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	TokenByteSize int           `mapstructure:"token_byte_size"`
}

// ServiceAuthSettings configures the mutual HMAC protocol. Token and secret
// are shared across services; ServiceID identifies this caller.
type ServiceAuthSettings struct {
	ServiceID string `mapstructure:"service_id"`
	Token     string `mapstructure:"token"`
	Secret    string `mapstructure:"secret"`
}

type OrgServiceSettings struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitSettings configures the fixed-window throttles per endpoint class.
type RateLimitSettings struct {
	LoginLimit          int           `mapstructure:"login_limit"`
	LoginWindow         time.Duration `mapstructure:"login_window"`
	PasswordResetLimit  int           `mapstructure:"password_reset_limit"`
	PasswordResetWindow time.Duration `mapstructure:"password_reset_window"`
	APILimit            int           `mapstructure:"api_limit"`
	APIWindow           time.Duration `mapstructure:"api_window"`
}

type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// Load reads configuration from file and environment.
func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 4000)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.database", "auth_service")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "auth")

	v.SetDefault("kafka.topic_prefix", "auth")

	v.SetDefault("jwt.issuer", "auth-service")
	v.SetDefault("jwt.access_token_ttl", time.Hour)

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.remember_me_ttl", 30*24*time.Hour)
	v.SetDefault("session.reset_token_ttl", time.Hour)
	v.SetDefault("session.token_byte_size", 48)

	v.SetDefault("service_auth.service_id", "auth-service")

	v.SetDefault("org_service.base_url", "http://localhost:4001")
	v.SetDefault("org_service.timeout", 5*time.Second)

	v.SetDefault("rate_limit.login_limit", 10)
	v.SetDefault("rate_limit.login_window", 5*time.Minute)
	v.SetDefault("rate_limit.password_reset_limit", 3)
	v.SetDefault("rate_limit.password_reset_window", time.Hour)
	v.SetDefault("rate_limit.api_limit", 100)
	v.SetDefault("rate_limit.api_window", time.Hour)
}

func validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	if strings.TrimSpace(cfg.ServiceAuth.Token) == "" || strings.TrimSpace(cfg.ServiceAuth.Secret) == "" {
		return fmt.Errorf("config: service_auth token and secret are required")
	}
	return nil
}
