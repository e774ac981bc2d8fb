package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8012, cfg.HTTPPort)
	assert.Equal(t, AttributeSourcePostgres, cfg.AttributeSource)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
	assert.Equal(t, 1000, cfg.MaxRows)
	assert.True(t, cfg.PersistRowRemoval)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("VARIANT_HTTP_PORT", "70000")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_RowRemovalPolicy(t *testing.T) {
	t.Setenv("VARIANT_PERSIST_ROW_REMOVAL", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.PersistRowRemoval)
}

func TestLoad_DraftTTL(t *testing.T) {
	t.Setenv("VARIANT_DRAFT_TTL", "90m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.DraftTTL)
}

func TestLoad_UnknownAttributeSource(t *testing.T) {
	t.Setenv("ATTRIBUTE_SOURCE", "mongo")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ATTRIBUTE_SOURCE must be")
}

func TestLoad_RemoteSourceNeedsAbsoluteURL(t *testing.T) {
	t.Setenv("ATTRIBUTE_SOURCE", "remote")
	t.Setenv("ATTRIBUTE_CATALOG_URL", "catalog:8001")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ATTRIBUTE_CATALOG_URL")

	t.Setenv("ATTRIBUTE_CATALOG_URL", "http://catalog:8001")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, AttributeSourceRemote, cfg.AttributeSource)
}

func TestLoad_InvalidCurrency(t *testing.T) {
	t.Setenv("VARIANT_DEFAULT_CURRENCY", "EURO")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "VARIANT_DEFAULT_CURRENCY")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_DefaultJWTSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_NegativeCatalogCacheMaxAge(t *testing.T) {
	t.Setenv("CATALOG_CACHE_MAX_AGE", "-1")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "CATALOG_CACHE_MAX_AGE")
}
