package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	iauth "github.com/aldidev/snipurl/internal/auth"
	"github.com/aldidev/snipurl/internal/cache"
	"github.com/aldidev/snipurl/internal/database"
	"github.com/aldidev/snipurl/internal/services"
	"github.com/aldidev/snipurl/pkg/mail"
)

// Config represents the runtime configuration for the snipurl backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	LogLevel          string        `mapstructure:"log_level"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AuthConfig captures authentication-related settings.
type AuthConfig struct {
	JWT      JWTSettings `mapstructure:"jwt"`
	HashCost int         `mapstructure:"hash_cost"`
}

// JWTSettings configures the access and refresh token pair.
type JWTSettings struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_token_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Verification VerificationConfig `mapstructure:"verification"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// VerificationConfig tunes the email verification flow.
type VerificationConfig struct {
	CodeTTL    time.Duration `mapstructure:"code_ttl"`
	WebsiteURL string        `mapstructure:"website_url"`
	DirectURL  string        `mapstructure:"direct_url"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SNIPURL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit_requests", 100)
	v.SetDefault("server.rate_limit_window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/snipurl.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key_prefix", "snipurl:")

	v.SetDefault("auth.jwt.issuer", "snipurl")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")
	v.SetDefault("auth.jwt.refresh_token_ttl", "168h") // 7 days
	v.SetDefault("auth.hash_cost", 12)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("email.verification.code_ttl", "5m")
	v.SetDefault("email.verification.website_url", "http://localhost:3000/verify/")
	v.SetDefault("email.verification.direct_url", "http://localhost:8000/api/mail/verify")

	v.SetDefault("maintenance.schedule", "@every 10m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// DatabaseSettings maps the configuration onto database.Config.
func (c *Config) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: c.Database.Driver,
		Path:   c.Database.Path,
		DSN:    c.Database.DSN,
	}

	var host DBAuthConfig
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		host = c.Database.Postgres
	case "mysql":
		host = c.Database.MySQL
	}

	cfg.Host = host.Host
	cfg.Port = host.Port
	cfg.Name = host.Database
	cfg.User = host.Username
	cfg.Password = host.Password

	return cfg
}

// TokenSettings maps the configuration onto the token service config.
func (c *Config) TokenSettings() iauth.TokenConfig {
	return iauth.TokenConfig{
		AccessSecret:    c.Auth.JWT.AccessSecret,
		RefreshSecret:   c.Auth.JWT.RefreshSecret,
		Issuer:          c.Auth.JWT.Issuer,
		AccessTokenTTL:  c.Auth.JWT.AccessTTL,
		RefreshTokenTTL: c.Auth.JWT.RefreshTTL,
	}
}

// SMTPSettings maps the configuration onto the mailer settings.
func (c *Config) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.Email.SMTP.Enabled,
		Host:     c.Email.SMTP.Host,
		Port:     c.Email.SMTP.Port,
		Username: c.Email.SMTP.Username,
		Password: c.Email.SMTP.Password,
		From:     c.Email.SMTP.From,
		UseTLS:   c.Email.SMTP.UseTLS,
		Timeout:  c.Email.SMTP.Timeout,
	}
}

// RedisSettings maps the configuration onto the Redis cache store config.
func (c *Config) RedisSettings() cache.RedisConfig {
	return cache.RedisConfig{
		Addr:      c.Cache.Redis.Address,
		Password:  c.Cache.Redis.Password,
		DB:        c.Cache.Redis.DB,
		KeyPrefix: c.Cache.Redis.KeyPrefix,
	}
}

// VerificationOptions maps the configuration onto verification service options.
func (c *Config) VerificationOptions() []services.VerificationOption {
	return []services.VerificationOption{
		services.WithCodeTTL(c.Email.Verification.CodeTTL),
		services.WithLinks(services.VerificationLinks{
			WebsiteURL: c.Email.Verification.WebsiteURL,
			DirectURL:  c.Email.Verification.DirectURL,
		}),
	}
}
