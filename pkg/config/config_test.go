package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "PAGE_SIZE", "MAX_PAGES", "REQUEST_TIMEOUT", "LOG_LEVEL", "GA_CREDENTIALS_FILE", "GA_CREDENTIALS_JSON", "GA_CREDENTIALS_SECRET", "RATE_LIMIT_PER_SECOND"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10000, cfg.Export.PageSize)
	assert.Equal(t, 10000, cfg.Export.MaxPages)
	assert.Equal(t, 60*time.Second, cfg.Export.RequestTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Export.AllowedOutputs)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("VIEW_ID", "ga:123")
	t.Setenv("PAGE_SIZE", "500")
	t.Setenv("RUN_TIMEOUT", "5m")
	t.Setenv("OUTPUT", "gs://bucket/out.csv")
	t.Setenv("MAX_PAGES", "not-a-number")
	t.Setenv("ALLOWED_OUTPUTS", "gs://bucket/exports/, ,/srv/exports")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ga:123", cfg.Export.ViewID)
	assert.Equal(t, 500, cfg.Export.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Export.RunTimeout)
	assert.Equal(t, "gs://bucket/out.csv", cfg.Export.Output)
	assert.Equal(t, 10000, cfg.Export.MaxPages, "unparseable values fall back to the default")
	assert.Equal(t, []string{"gs://bucket/exports/", "/srv/exports"}, cfg.Export.AllowedOutputs)
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{
		Export: ExportConfig{PageSize: 0, MaxPages: 0, RateLimitPerSecond: 0},
		Credentials: CredentialsConfig{
			File:   "key.json",
			Secret: "projects/p/secrets/s/versions/latest",
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page size")
	assert.Contains(t, err.Error(), "max pages")
	assert.Contains(t, err.Error(), "rate limit")
	assert.Contains(t, err.Error(), "only one of")
}
