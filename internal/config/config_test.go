package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsdevblog/guestmart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *Config {
	t.Helper()
	var c Config
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, &c)
	require.NoError(t, fs.Parse(args))
	return &c
}

func TestLoad(t *testing.T) {
	t.Run("flags with defaults", func(t *testing.T) {
		conf, err := Load(parseFlags(t, "-d", "postgres://flags", "--jwt-secret", "s3cret"))
		require.NoError(t, err)

		assert.Equal(t, "postgres://flags", conf.DatabaseDSN)
		assert.Equal(t, defaultRunAddress, conf.RunAddress)
		assert.Equal(t, defaultMailerAddress, conf.MailerAddress)
		assert.Equal(t, defaultAutoApproveInterval, conf.AutoApproveInterval)
		assert.NoError(t, conf.ValidateServe())
	})

	t.Run("env overrides flags", func(t *testing.T) {
		t.Setenv("DATABASE_URI", "postgres://env")
		t.Setenv("RUN_ADDRESS", ":9090")
		t.Setenv("AUTO_APPROVE_INTERVAL", "1m")
		t.Setenv("MAILER_API_KEY", "re_123")

		conf, err := Load(parseFlags(t, "-d", "postgres://flags", "-a", ":8081"))
		require.NoError(t, err)

		assert.Equal(t, "postgres://env", conf.DatabaseDSN)
		assert.Equal(t, ":9090", conf.RunAddress)
		assert.Equal(t, time.Minute, conf.AutoApproveInterval)
		assert.Equal(t, "re_123", conf.MailerAPIKey)
		assert.ErrorIs(t, conf.ValidateServe(), ErrJWTSecretMissing)
	})

	t.Run("dsn is required", func(t *testing.T) {
		_, err := Load(parseFlags(t))
		assert.ErrorIs(t, err, ErrDatabaseDSNMissing)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("AUTO_APPROVE_INTERVAL", "soon")
		_, err := Load(parseFlags(t, "-d", "postgres://flags"))
		assert.Error(t, err)
	})
}

func TestConfigStringHidesSecrets(t *testing.T) {
	c := Config{JWTSecret: "jwt-value", MailerAPIKey: "key-value", DatabaseDSN: "postgres://user:pass@db"}
	out := c.String()

	assert.NotContains(t, out, "jwt-value")
	assert.NotContains(t, out, "key-value")
	assert.NotContains(t, out, "pass@db")
	assert.Contains(t, out, "MailerEnabled:true")
}

func writePricing(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPricing(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		p, err := LoadPricing("")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultPricingPolicy(), p)
	})

	t.Run("partial override", func(t *testing.T) {
		p, err := LoadPricing(writePricing(t, `
platform_fee_rate = "0.20"
confirmation_window = "48h"
api_rate_limit = 250
`))
		require.NoError(t, err)

		def := domain.DefaultPricingPolicy()
		assert.True(t, decimal.RequireFromString("0.2").Equal(p.PlatformFeeRate))
		assert.True(t, def.AffiliateFeeRate.Equal(p.AffiliateFeeRate))
		assert.Equal(t, 48*time.Hour, p.ConfirmationWindow)
		assert.Equal(t, def.DisputeProtection, p.DisputeProtection)
		assert.Equal(t, def.MinPayout, p.MinPayout)
		assert.Equal(t, 250, p.APIRateLimit)
	})

	cases := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: `platform_fee = "0.2"`},
		{name: "bad rate", body: `platform_fee_rate = "a quarter"`},
		{name: "rate out of range", body: `affiliate_fee_rate = "1.5"`},
		{name: "bad duration", body: `dispute_protection = "90 days"`},
		{name: "non positive payout", body: `min_payout_cents = 0`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPricing(writePricing(t, tc.body))
			assert.ErrorIs(t, err, ErrInvalidPricing)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPricing(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidPricing)
	})
}
