package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"customer-portal/pkg/config"
	"customer-portal/pkg/otel"
)

type TwilioConfig struct {
	AccountSID    string        `yaml:"account_sid"`
	AuthToken     string        `yaml:"auth_token"`
	From          string        `yaml:"from"`
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	Timeout       time.Duration `yaml:"timeout"`
	ChannelPrefix string        `yaml:"channel_prefix" validate:"required"`
	CountryCode   string        `yaml:"country_code" validate:"required,startswith=+"`
}

// Configured reports whether outbound messages can be sent.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type TrustpilotConfig struct {
	APIKey         string        `yaml:"api_key"`
	BusinessUnitID string        `yaml:"business_unit_id"`
	BaseURL        string        `yaml:"base_url" validate:"required,url"`
	Language       string        `yaml:"language"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Configured is false in demo mode.
func (c TrustpilotConfig) Configured() bool {
	return c.APIKey != "" && c.BusinessUnitID != ""
}

type SupabaseConfig struct {
	URL            string        `yaml:"url" validate:"required,url"`
	AnonKey        string        `yaml:"anon_key"`
	ServiceRoleKey string        `yaml:"service_role_key"`
	JWTSecret      string        `yaml:"jwt_secret" validate:"required"`
	Timeout        time.Duration `yaml:"timeout"`
	DocumentBucket string        `yaml:"document_bucket" validate:"required"`
	SignedURLTTL   time.Duration `yaml:"signed_url_ttl"`
}

type SessionConfig struct {
	CookieName        string        `yaml:"cookie_name" validate:"required"`
	RefreshCookieName string        `yaml:"refresh_cookie_name" validate:"required"`
	RefreshTTL        time.Duration `yaml:"refresh_ttl"`
	SecureCookie      bool          `yaml:"secure_cookie"`
	// public origin used for the magic-link callback
	SiteURL string `yaml:"site_url" validate:"required,url"`
}

type NotificationConfig struct {
	CronSecret string `yaml:"cron_secret"`
	// either a bcrypt hash or a plain value; both are accepted
	InternalSecret string `yaml:"internal_secret"`
	// empty or "off" disables the in-process sweep
	ReminderCron string `yaml:"reminder_cron"`
	// how long a sent reminder blocks a second one for the same project and day
	ReminderDedupTTL time.Duration `yaml:"reminder_dedup_ttl"`
	Timezone         string        `yaml:"timezone" validate:"required"`
	Brand            string        `yaml:"brand"`
	PortalURL        string        `yaml:"portal_url" validate:"required,url"`
	SupportPhone     string        `yaml:"support_phone"`
}

// ReminderCronEnabled is false when the sweep is left to an external trigger.
func (c NotificationConfig) ReminderCronEnabled() bool {
	v := strings.TrimSpace(c.ReminderCron)
	return v != "" && !strings.EqualFold(v, "off")
}

type ReviewConfig struct {
	FreshnessWindow time.Duration `yaml:"freshness_window"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type WorkerConfig struct {
	Queue      string        `yaml:"queue" validate:"required"`
	MaxRetries int           `yaml:"max_retries"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"`
}

type Config struct {
	Server       config.ServerConfig `yaml:"server"`
	DB           config.DBConfig     `yaml:"db"`
	MQ           config.MQConfig     `yaml:"mq"`
	Redis        config.RedisConfig  `yaml:"redis"`
	OTel         otel.Config         `yaml:"otel"`
	Twilio       TwilioConfig        `yaml:"twilio"`
	Trustpilot   TrustpilotConfig    `yaml:"trustpilot"`
	Supabase     SupabaseConfig      `yaml:"supabase"`
	Session      SessionConfig       `yaml:"session"`
	Notification NotificationConfig  `yaml:"notification"`
	Review       ReviewConfig        `yaml:"review"`
	Outbox       OutboxConfig        `yaml:"outbox"`
	Worker       WorkerConfig        `yaml:"worker"`
}

// Load reads CONFIG_DIR/base.yaml, the CONFIG_ENV overlay and the environment.
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// environment wins over files
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	overrideFromEnv(&cfg)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func overrideFromEnv(cfg *Config) {
	config.OverrideString(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	config.OverrideString(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	config.OverrideString(&cfg.Twilio.From, "TWILIO_WHATSAPP_FROM")

	config.OverrideString(&cfg.Trustpilot.APIKey, "TRUSTPILOT_API_KEY")
	config.OverrideString(&cfg.Trustpilot.BusinessUnitID, "TRUSTPILOT_BUSINESS_UNIT_ID")

	config.OverrideString(&cfg.Supabase.URL, "SUPABASE_URL")
	config.OverrideString(&cfg.Supabase.AnonKey, "SUPABASE_ANON_KEY")
	config.OverrideString(&cfg.Supabase.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	config.OverrideString(&cfg.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")

	config.OverrideString(&cfg.Session.SiteURL, "SITE_URL")
	config.OverrideString(&cfg.Notification.CronSecret, "CRON_SECRET")
	config.OverrideString(&cfg.Notification.InternalSecret, "INTERNAL_SECRET")

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OTel.Enabled = b
		}
	}
	config.OverrideString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func (c *Config) applyDefaults() {
	if c.Twilio.Timeout <= 0 {
		c.Twilio.Timeout = 10 * time.Second
	}
	if c.Trustpilot.Timeout <= 0 {
		c.Trustpilot.Timeout = 8 * time.Second
	}
	if c.Trustpilot.Language == "" {
		c.Trustpilot.Language = "de"
	}
	if c.Supabase.Timeout <= 0 {
		c.Supabase.Timeout = 10 * time.Second
	}
	if c.Supabase.SignedURLTTL <= 0 {
		c.Supabase.SignedURLTTL = time.Hour
	}
	if c.Session.RefreshTTL <= 0 {
		c.Session.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Review.FreshnessWindow <= 0 {
		c.Review.FreshnessWindow = 24 * time.Hour
	}
	if c.Notification.ReminderDedupTTL <= 0 {
		c.Notification.ReminderDedupTTL = 48 * time.Hour
	}
	if c.Worker.MaxRetries <= 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.DedupTTL <= 0 {
		c.Worker.DedupTTL = 24 * time.Hour
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
}

// Validate checks required settings and that the timezone is loadable.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Notification.Timezone); err != nil {
		return fmt.Errorf("invalid config: notification.timezone: %w", err)
	}
	return nil
}

// Location returns the timezone reminder dates are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Notification.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
