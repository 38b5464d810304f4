package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "secret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 10, cfg.ListPageSize)
	require.Equal(t, 2*time.Hour, cfg.EditorTTL)
	require.Equal(t, "*/5 * * * *", cfg.SweepCron)
	require.True(t, cfg.RedirectOnExpiry)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresCSRFSecret(t *testing.T) {
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsEmptyPageSize(t *testing.T) {
	t.Setenv("CSRF_SECRET", "secret")
	t.Setenv("LIST_PAGE_SIZE", "0")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "page size")
}
