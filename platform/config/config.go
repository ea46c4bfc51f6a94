// Package config loads the environment into Config. Consumers depend on the
// narrow interfaces below rather than on Config itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides Redis and asynq settings for background work.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AutomationConfig provides the startup values of the rule engine.
type AutomationConfig interface {
	GetCheckInterval() time.Duration
	GetSLAThreshold() time.Duration
	GetStaleAfter() time.Duration
	GetAlertCooldown() time.Duration
	GetDistributionEnabled() bool
	GetDistributionMethod() string
	GetRulesFile() string
	GetWelcomeTemplate() string
	GetScheduledCheckEnabled() bool
}

// WebhookConfig provides inbound lead capture and outbound fan-out settings.
type WebhookConfig interface {
	GetLeadCaptureAPIKey() string
	GetOutboundWebhookURLs() []string
	GetOutboundWebhookTimeout() time.Duration
}

// WhatsAppConfig provides settings for the WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
}

// NotificationConfig provides settings for building links in notifications.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// SMTPConfig provides settings for alert e-mails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromAddress() string
	GetSMTPFromName() string
	IsSMTPEnabled() bool
}

// Config holds all application configuration values.
type Config struct {
	Env              string
	AppBaseURL       string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueue       string
	AsynqConcurrency int

	CheckInterval         time.Duration
	SLAThreshold          time.Duration
	StaleAfter            time.Duration
	AlertCooldown         time.Duration
	DistributionEnabled   bool
	DistributionMethod    string
	RulesFile             string
	WelcomeTemplate       string
	ScheduledCheckEnabled bool

	LeadCaptureAPIKey      string
	OutboundWebhookURLs    []string
	OutboundWebhookTimeout time.Duration

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromAddress string
	SMTPFromName    string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// AutomationConfig implementation
func (c *Config) GetCheckInterval() time.Duration { return c.CheckInterval }
func (c *Config) GetSLAThreshold() time.Duration  { return c.SLAThreshold }
func (c *Config) GetStaleAfter() time.Duration    { return c.StaleAfter }
func (c *Config) GetAlertCooldown() time.Duration { return c.AlertCooldown }
func (c *Config) GetDistributionEnabled() bool    { return c.DistributionEnabled }
func (c *Config) GetDistributionMethod() string   { return c.DistributionMethod }
func (c *Config) GetRulesFile() string            { return c.RulesFile }
func (c *Config) GetWelcomeTemplate() string      { return c.WelcomeTemplate }
func (c *Config) GetScheduledCheckEnabled() bool  { return c.ScheduledCheckEnabled }

// WebhookConfig implementation
func (c *Config) GetLeadCaptureAPIKey() string             { return c.LeadCaptureAPIKey }
func (c *Config) GetOutboundWebhookURLs() []string         { return c.OutboundWebhookURLs }
func (c *Config) GetOutboundWebhookTimeout() time.Duration { return c.OutboundWebhookTimeout }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }
func (c *Config) IsSMTPEnabled() bool        { return c.SMTPHost != "" && c.SMTPFromAddress != "" }

const defaultWelcomeTemplate = "Hi {{name}}, thanks for reaching out! One of our team will contact you shortly."

// Load reads configuration from the environment, after loading .env when
// present. Malformed values are reported together with failed validations.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.LookupEnv)
}

func fromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := &envReader{lookup: lookup}

	corsOrigins := e.list("CORS_ORIGINS", "http://localhost:5173")
	cfg := &Config{
		Env:              e.str("APP_ENV", "development"),
		AppBaseURL:       strings.TrimRight(e.str("APP_BASE_URL", "http://localhost:5173"), "/"),
		HTTPAddr:         e.str("HTTP_ADDR", ":8080"),
		DatabaseURL:      e.str("DATABASE_URL", ""),
		JWTAccessSecret:  e.str("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:     e.boolean("CORS_ALLOW_ALL", false) || slices.Contains(corsOrigins, "*"),
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   e.boolean("CORS_ALLOW_CREDENTIALS", true),
		RedisURL:         e.str("REDIS_URL", ""),
		RedisTLSInsecure: e.boolean("REDIS_TLS_INSECURE", false),
		AsynqQueue:       e.str("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: e.integer("ASYNQ_CONCURRENCY", 10),

		CheckInterval:         e.duration("AUTOMATION_CHECK_INTERVAL", 30*time.Second),
		SLAThreshold:          e.duration("AUTOMATION_SLA_THRESHOLD", 15*time.Minute),
		StaleAfter:            e.duration("AUTOMATION_STALE_AFTER", 72*time.Hour),
		AlertCooldown:         e.duration("AUTOMATION_ALERT_COOLDOWN", time.Hour),
		DistributionEnabled:   e.boolean("DISTRIBUTION_ENABLED", true),
		DistributionMethod:    strings.ToLower(e.str("DISTRIBUTION_METHOD", "round_robin")),
		RulesFile:             e.str("AUTOMATION_RULES_FILE", ""),
		WelcomeTemplate:       e.str("AUTOMATION_WELCOME_TEMPLATE", defaultWelcomeTemplate),
		ScheduledCheckEnabled: e.boolean("AUTOMATION_SCHEDULED_CHECK", true),

		LeadCaptureAPIKey:      e.str("LEAD_CAPTURE_API_KEY", ""),
		OutboundWebhookURLs:    e.list("OUTBOUND_WEBHOOK_URLS", ""),
		OutboundWebhookTimeout: e.duration("OUTBOUND_WEBHOOK_TIMEOUT", 5*time.Second),

		WhatsAppURL:      e.str("WHATSAPP_URL", ""),
		WhatsAppKey:      e.str("WHATSAPP_KEY", ""),
		WhatsAppDeviceID: e.str("WHATSAPP_DEVICE_ID", ""),

		SMTPHost:        e.str("SMTP_HOST", ""),
		SMTPPort:        e.integer("SMTP_PORT", 587),
		SMTPUsername:    e.str("SMTP_USERNAME", ""),
		SMTPPassword:    e.str("SMTP_PASSWORD", ""),
		SMTPFromAddress: e.str("SMTP_FROM_ADDRESS", ""),
		SMTPFromName:    e.str("SMTP_FROM_NAME", "Leadflow"),
	}

	errs := e.errs
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		errs = append(errs, errors.New("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true"))
	}
	if cfg.CheckInterval <= 0 {
		errs = append(errs, errors.New("AUTOMATION_CHECK_INTERVAL must be a positive duration"))
	}
	if cfg.DistributionMethod != "round_robin" && cfg.DistributionMethod != "load_balanced" {
		errs = append(errs, fmt.Errorf("DISTRIBUTION_METHOD must be round_robin or load_balanced, got %q", cfg.DistributionMethod))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// envReader reads typed values and records every value it cannot parse.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e *envReader) boolean(key string, fallback bool) bool {
	raw, ok := e.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return fallback
	}
	return v
}

func (e *envReader) integer(key string, fallback int) int {
	raw, ok := e.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return v
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := e.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return fallback
	}
	return v
}

func (e *envReader) list(key, fallback string) []string {
	var out []string
	for part := range strings.SplitSeq(e.str(key, fallback), ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
