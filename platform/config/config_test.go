package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":      "postgres://localhost/leadflow",
		"JWT_ACCESS_SECRET": "secret",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := fromEnv(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.GetCheckInterval())
	assert.Equal(t, 15*time.Minute, cfg.GetSLAThreshold())
	assert.Equal(t, "round_robin", cfg.GetDistributionMethod())
	assert.True(t, cfg.GetDistributionEnabled())
	assert.Equal(t, 587, cfg.GetSMTPPort())
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.GetCORSOrigins())
	assert.Empty(t, cfg.GetOutboundWebhookURLs())
	assert.False(t, cfg.IsSMTPEnabled())
}

func TestFromEnvParsesValues(t *testing.T) {
	env := baseEnv()
	env["AUTOMATION_SLA_THRESHOLD"] = "20m"
	env["DISTRIBUTION_METHOD"] = "Load_Balanced"
	env["OUTBOUND_WEBHOOK_URLS"] = " https://a.example.com , ,https://b.example.com"
	env["APP_BASE_URL"] = "https://crm.example.com/"

	cfg, err := fromEnv(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, 20*time.Minute, cfg.GetSLAThreshold())
	assert.Equal(t, "load_balanced", cfg.GetDistributionMethod())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.GetOutboundWebhookURLs())
	assert.Equal(t, "https://crm.example.com", cfg.GetAppBaseURL())
}

func TestFromEnvReportsEveryProblem(t *testing.T) {
	env := map[string]string{
		"AUTOMATION_CHECK_INTERVAL": "often",
		"SMTP_PORT":                 "smtp",
		"DISTRIBUTION_METHOD":       "random",
	}

	_, err := fromEnv(lookupFrom(env))
	require.Error(t, err)
	for _, want := range []string{"DATABASE_URL", "JWT_ACCESS_SECRET", "AUTOMATION_CHECK_INTERVAL", "SMTP_PORT", "DISTRIBUTION_METHOD"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestFromEnvRejectsWildcardWithCredentials(t *testing.T) {
	env := baseEnv()
	env["CORS_ORIGINS"] = "*"

	_, err := fromEnv(lookupFrom(env))
	require.ErrorContains(t, err, "CORS_ALLOW_CREDENTIALS")

	env["CORS_ALLOW_CREDENTIALS"] = "false"
	cfg, err := fromEnv(lookupFrom(env))
	require.NoError(t, err)
	assert.True(t, cfg.GetCORSAllowAll())
}
