// Package config loads the server configuration from a YAML file and
// LOCKARD_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lockard-llc/lockard-site/logging"
	"github.com/lockard-llc/lockard-site/source"
	"github.com/spf13/viper"
)

const EnvPrefix = "LOCKARD"

type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Refresh     RefreshConfig   `mapstructure:"refresh"`
	Source      source.Config   `mapstructure:"source"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Analytics   AnalyticsConfig `mapstructure:"analytics"`
	Recaptcha   RecaptchaConfig `mapstructure:"recaptcha"`
	AI          AIConfig        `mapstructure:"ai"`
	Logging     logging.Config  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AuthKey         string        `mapstructure:"auth_key"`
	Template        string        `mapstructure:"template"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RefreshConfig struct {
	Interval             time.Duration `mapstructure:"interval"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	MinimumFetchInterval time.Duration `mapstructure:"minimum_fetch_interval"`
}

// RedisConfig enables the activated-config cache, the realtime analytics
// stream, the feedback stream and config update notifications when Addr
// is set.
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	CacheKey       string        `mapstructure:"cache_key"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	Stream         string        `mapstructure:"stream"`
	FeedbackStream string        `mapstructure:"feedback_stream"`
	UpdatesChannel string        `mapstructure:"updates_channel"`
}

// AnalyticsConfig sends events to GA4 when MeasurementID is set. There is
// no default measurement id.
type AnalyticsConfig struct {
	MeasurementID string `mapstructure:"measurement_id"`
	APISecret     string `mapstructure:"api_secret"`
	Endpoint      string `mapstructure:"endpoint"`
	BufferSize    int    `mapstructure:"buffer_size"`
}

type RecaptchaConfig struct {
	ProjectID  string  `mapstructure:"project_id"`
	SiteKey    string  `mapstructure:"site_key"`
	APIKey     string  `mapstructure:"api_key"`
	Endpoint   string  `mapstructure:"endpoint"`
	MinScore   float64 `mapstructure:"min_score"`
	DebugToken string  `mapstructure:"debug_token"`
}

type AIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	FlashModel        string        `mapstructure:"flash_model"`
	ProModel          string        `mapstructure:"pro_model"`
	FallbackModel     string        `mapstructure:"fallback_model"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Retries           uint64        `mapstructure:"retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.auth_key", "")
	v.SetDefault("server.template", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("refresh.interval", 300000*time.Millisecond)
	v.SetDefault("refresh.fetch_timeout", 60*time.Second)
	v.SetDefault("refresh.minimum_fetch_interval", 5*time.Minute)

	for _, k := range []string{"name", "url", "api_key", "bucket", "object", "region", "endpoint",
		"access_key", "secret_key", "branch", "username", "password", "project_id"} {
		v.SetDefault("source."+k, "")
	}
	v.SetDefault("source.type", "file")
	v.SetDefault("source.path", "site.yaml")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_key", "lockard:remote_config:active")
	v.SetDefault("redis.cache_ttl", 7*24*time.Hour)
	v.SetDefault("redis.stream", "lockard:analytics_events")
	v.SetDefault("redis.feedback_stream", "lockard:user_feedback")
	v.SetDefault("redis.updates_channel", "lockard:remote_config:updates")

	v.SetDefault("analytics.measurement_id", "")
	v.SetDefault("analytics.api_secret", "")
	v.SetDefault("analytics.endpoint", "")
	v.SetDefault("analytics.buffer_size", 256)

	v.SetDefault("recaptcha.project_id", "")
	v.SetDefault("recaptcha.site_key", "")
	v.SetDefault("recaptcha.api_key", "")
	v.SetDefault("recaptcha.endpoint", "")
	v.SetDefault("recaptcha.min_score", 0.5)
	v.SetDefault("recaptcha.debug_token", "")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.flash_model", "gemini-2.5-flash")
	v.SetDefault("ai.pro_model", "gemini-2.5-pro")
	v.SetDefault("ai.fallback_model", "gemini-1.5-flash")
	v.SetDefault("ai.requests_per_minute", 15)
	v.SetDefault("ai.retries", 3)
	v.SetDefault("ai.retry_delay", time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// Load reads path, when set, over the defaults and applies environment
// overrides such as LOCKARD_SERVER_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Source.Type == "firebase" && c.Source.ProjectID == "" {
		errs = append(errs, errors.New("source.project_id is required for the firebase source"))
	}
	if c.Analytics.MeasurementID != "" && c.Analytics.APISecret == "" {
		errs = append(errs, errors.New("analytics.api_secret is required with analytics.measurement_id"))
	}
	if c.Recaptcha.MinScore < 0 || c.Recaptcha.MinScore > 1 {
		errs = append(errs, fmt.Errorf("recaptcha.min_score %v is outside [0, 1]", c.Recaptcha.MinScore))
	}
	if c.Recaptcha.DebugToken != "" && !c.Development() {
		errs = append(errs, errors.New("recaptcha.debug_token is only allowed in development"))
	}
	if c.AI.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("ai.requests_per_minute must not be negative"))
	}
	return errors.Join(errs...)
}

// Development reports whether the server runs in a development environment.
func (c *Config) Development() bool {
	return c.Environment == "development" || c.Environment == "dev"
}
