package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ODYSSEY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 5, cfg.TxMaxAttempts)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, 168*time.Hour, cfg.IdempotencyRetention)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsEnvFileWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CHECKOUT_RATE_LIMIT=7\nAPP_ADDR=:9999\nREPORT_TIMEZONE=Asia/Jakarta\n"), 0o600))
	t.Setenv("ODYSSEY_ENV_FILE", path)
	t.Setenv("APP_ADDR", ":7000")
	t.Cleanup(func() {
		_ = os.Unsetenv("CHECKOUT_RATE_LIMIT")
		_ = os.Unsetenv("REPORT_TIMEZONE")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.CheckoutRateLimit)
	require.Equal(t, ":7000", cfg.AppAddr)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Jakarta", loc.String())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ODYSSEY_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("TX_MAX_ATTEMPTS", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("TX_MAX_ATTEMPTS", "3")
	t.Setenv("REPORT_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	require.Error(t, err)
}
