package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"gt=0,lte=65535"`
	Mode           string   `mapstructure:"mode" validate:"oneof=debug release test"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsRelease reports whether diagnostic details must be withheld from responses.
func (s *ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database" validate:"required"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the driver-specific connection string. For sqlite the
// database field is the file path (or ":memory:").
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format" validate:"oneof=console json"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret" validate:"required,min=16"`
	Issuer string `mapstructure:"issuer"`
}

type SessionCookieConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Domain   string `mapstructure:"domain"`
	Path     string `mapstructure:"path"`
	Secure   bool   `mapstructure:"secure"`
	MaxAgeHr int    `mapstructure:"max_age_hours"`
}

type AuthConfig struct {
	JWT       JWTConfig           `mapstructure:"jwt"`
	Session   SessionCookieConfig `mapstructure:"session"`
	SignInURL string              `mapstructure:"sign_in_url" validate:"required"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SubscriptionConfig struct {
	// CacheDriver selects the record cache: "memory" or "redis".
	CacheDriver     string        `mapstructure:"cache_driver" validate:"oneof=memory redis"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheSize       int           `mapstructure:"cache_size" validate:"gt=0"`
	ScopeCapacity   int           `mapstructure:"scope_capacity" validate:"gt=0"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	EventChannel    string        `mapstructure:"event_channel"`
	EventsEnabled   bool          `mapstructure:"events_enabled"`
}

type PromptConfig struct {
	Expired string `mapstructure:"expired"`
	Upgrade string `mapstructure:"upgrade"`
}

type GuardConfig struct {
	AwaitTimeout    time.Duration `mapstructure:"await_timeout"`
	RetryAfter      time.Duration `mapstructure:"retry_after"`
	PolicyFile      string        `mapstructure:"policy_file" validate:"required"`
	PersistPolicies bool          `mapstructure:"persist_policies"`
	Prompts         PromptConfig  `mapstructure:"prompts"`
}

type BillingConfig struct {
	SecretKey            string   `mapstructure:"secret_key"`
	PriceAllowlist       []string `mapstructure:"price_allowlist"`
	AllowedReturnOrigins []string `mapstructure:"allowed_return_origins"`
	DefaultReturnOrigin  string   `mapstructure:"default_return_origin" validate:"required,url"`
	SuccessPath          string   `mapstructure:"success_path"`
	CancelPath           string   `mapstructure:"cancel_path"`
	PortalReturnPath     string   `mapstructure:"portal_return_path"`
	// RateLimit caps checkout and portal session creation per user.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute" validate:"gte=0"`
	PerHour   int `mapstructure:"per_hour" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
