package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.AppAddr)
	require.EqualValues(t, 10, cfg.PGMaxConns)
	require.Equal(t, 10, cfg.DashboardRecentLimit)
	require.Equal(t, "0.1", cfg.ExchangeRate().String())
	require.Equal(t, "USD", cfg.Currency().String())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DEFAULT_EXCHANGE_RATE", "0.25")
	t.Setenv("CASH_CURRENCY", "EUR")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "0.25", cfg.ExchangeRate().String())
	require.Equal(t, "EUR", cfg.Currency().String())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		key, value, want string
	}{
		"malformed rate":  {"DEFAULT_EXCHANGE_RATE", "ten cents", "default exchange rate"},
		"zero rate":       {"DEFAULT_EXCHANGE_RATE", "0", "must be positive"},
		"negative rate":   {"DEFAULT_EXCHANGE_RATE", "-0.10", "must be positive"},
		"currency":        {"CASH_CURRENCY", "dollars", "cash currency"},
		"recent limit":    {"DASHBOARD_RECENT_LIMIT", "0", "recent limit"},
		"rate limit":      {"RATE_LIMIT_PER_MINUTE", "-1", "rate limit"},
		"max connections": {"PG_MAX_CONNS", "many", "PG_MAX_CONNS"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := LoadConfig()
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestNilConfigIsNotProduction(t *testing.T) {
	var cfg *Config
	require.False(t, cfg.IsProduction())
}
