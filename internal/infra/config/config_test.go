package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, DriverMemory, cfg.StorageDriver)
	require.Equal(t, int64(1500), cfg.PlatformFeeBasisPoints)
	require.Equal(t, int64(200), cfg.SafetyDepositMinor)
	require.Equal(t, "INR", cfg.SettlementCurrency)
	require.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	require.False(t, cfg.AuditArchiveEnabled())
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PLATFORM_FEE_BPS=1000\nGATEWAY_TIMEOUT=3s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PLATFORM_FEE_BPS")
		os.Unsetenv("GATEWAY_TIMEOUT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(1000), cfg.PlatformFeeBasisPoints)
	require.Equal(t, 3*time.Second, cfg.GatewayTimeout)
}

func TestLoadRequiresDriverSettings(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("POSTGRES_URL", "")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "POSTGRES_URL")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SAFETY_DEPOSIT_MINOR", "lots")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorContains(t, err, "SAFETY_DEPOSIT_MINOR")
}
