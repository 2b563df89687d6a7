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
	assert.Equal(t, "wishlist_db", cfg.PostgresDB)
	assert.True(t, cfg.MergeOnLogin)
	assert.Equal(t, "My Wishlist", cfg.DefaultListName)
	assert.Equal(t, 100, cfg.MaxNameLength)
	assert.Equal(t, 30, cfg.GuestExpiryDays)
	assert.Equal(t, "wishlist_session", cfg.SessionCookie)
	assert.Equal(t, "5", cfg.PriceDropThreshold().String())
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL())
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("WISHLIST_HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_InvalidOTELSampleRate(t *testing.T) {
	t.Setenv("OTEL_SAMPLE_RATE", "2.0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OTEL_SAMPLE_RATE must be between 0.0 and 1.0")
}

func TestLoad_DefaultJWTSecretRejectedOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be explicitly set")
}

func TestLoad_InvalidCron(t *testing.T) {
	t.Setenv("PRICE_DROP_CRON", "every day")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PRICE_DROP_CRON")
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("PRICE_DROP_THRESHOLD_PCT", "0")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRICE_DROP_THRESHOLD_PCT")
}

func TestLoad_MaxNameLengthBounds(t *testing.T) {
	for _, v := range []string{"0", "256"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("WISHLIST_MAX_NAME_LENGTH", v)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "WISHLIST_MAX_NAME_LENGTH")
		})
	}

	t.Setenv("WISHLIST_MAX_NAME_LENGTH", "255")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 255, cfg.MaxNameLength)
}

func TestLoad_InvalidProductURL(t *testing.T) {
	t.Setenv("PRODUCT_SERVICE_URL", "not a url")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRODUCT_SERVICE_URL")
}

func TestLoad_SenderAddressCheckedOnlyWithAPIKey(t *testing.T) {
	t.Setenv("MAIL_FROM_EMAIL", "nope")

	_, err := Load()
	require.NoError(t, err)

	t.Setenv("SENDGRID_API_KEY", "SG.key")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAIL_FROM_EMAIL")
}
