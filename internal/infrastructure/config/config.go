package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sharedConfig "github.com/vendora-inc/vendora/internal/shared/config"
	"github.com/vendora-inc/vendora/internal/shared/utils"
)

const envPrefix = "VENDORA"

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Auth         sharedConfig.AuthConfig         `mapstructure:"auth"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Subscription sharedConfig.SubscriptionConfig `mapstructure:"subscription"`
	Guard        sharedConfig.GuardConfig        `mapstructure:"guard"`
	Billing      sharedConfig.BillingConfig      `mapstructure:"billing"`
	Metrics      sharedConfig.MetricsConfig      `mapstructure:"metrics"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml, a local .env file and VENDORA_* variables,
// in increasing order of precedence. A non-empty env overrides server.mode.
func Load(env string, searchPaths ...string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"./configs", "../configs", "../../configs"}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := utils.ValidateStruct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "vendora_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.session.name", "vendora_sid")
	v.SetDefault("auth.session.domain", "")
	v.SetDefault("auth.session.path", "/")
	v.SetDefault("auth.session.secure", false)
	v.SetDefault("auth.session.max_age_hours", 24*30)
	v.SetDefault("auth.sign_in_url", "http://localhost:5173/sign-in")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("subscription.cache_driver", "memory")
	v.SetDefault("subscription.cache_ttl", 5*time.Minute)
	v.SetDefault("subscription.cache_size", 10000)
	v.SetDefault("subscription.scope_capacity", 50000)
	v.SetDefault("subscription.refresh_interval", 10*time.Minute)
	v.SetDefault("subscription.event_channel", "vendora:subscription:change")
	v.SetDefault("subscription.events_enabled", false)

	v.SetDefault("guard.await_timeout", 1500*time.Millisecond)
	v.SetDefault("guard.retry_after", 2*time.Second)
	v.SetDefault("guard.policy_file", "configs/access_policy.yaml")
	v.SetDefault("guard.persist_policies", false)
	v.SetDefault("guard.prompts.expired", "")
	v.SetDefault("guard.prompts.upgrade", "")

	v.SetDefault("billing.secret_key", "")
	v.SetDefault("billing.price_allowlist", []string{})
	v.SetDefault("billing.allowed_return_origins", []string{})
	v.SetDefault("billing.default_return_origin", "http://localhost:5173")
	v.SetDefault("billing.success_path", "/billing/success")
	v.SetDefault("billing.cancel_path", "/billing")
	v.SetDefault("billing.portal_return_path", "/settings/billing")
	v.SetDefault("billing.rate_limit.per_minute", 10)
	v.SetDefault("billing.rate_limit.per_hour", 60)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
