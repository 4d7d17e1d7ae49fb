package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PROVISION_ISSUER", "MAIL_MAX_ATTEMPTS", "PROVISION_ROW_TIMEOUT", "PROVISION_RATE_PER_SEC", "MAIL_REDIRECT_TO"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, "ppmk-provision", cfg.Issuer)
	require.Equal(t, 3, cfg.MailMaxAttempts)
	require.Equal(t, 30*time.Second, cfg.RowTimeout)
	require.Equal(t, 5.0, cfg.ProvisionRatePerSec)
	require.Equal(t, 500, cfg.MaxBatchSize)
	require.Empty(t, cfg.MailRedirectTo)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MAIL_MAX_ATTEMPTS", "1")
	t.Setenv("PROVISION_ROW_TIMEOUT", "45")
	t.Setenv("REPAIR_INTERVAL", "2m")
	t.Setenv("PROVISION_RATE_PER_SEC", "0.5")
	t.Setenv("MAIL_REDIRECT_TO", "  sandbox@ppmk.my ")
	t.Setenv("PORT", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, 1, cfg.MailMaxAttempts)
	require.Equal(t, 45*time.Second, cfg.RowTimeout)
	require.Equal(t, 2*time.Minute, cfg.RepairInterval)
	require.Equal(t, 0.5, cfg.ProvisionRatePerSec)
	require.Equal(t, "sandbox@ppmk.my", cfg.MailRedirectTo)
	require.Equal(t, 8080, cfg.Port)
}
