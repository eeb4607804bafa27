package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "School Portal API", cfg.AppName)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 10, cfg.DefaultPageSize)
	require.Equal(t, 4, cfg.TimetableClassesPage)
	require.Equal(t, 5, cfg.UploadMaxMB)
	require.Equal(t, 12*time.Hour, cfg.JWTTTL)
	require.Equal(t, 3*time.Second, cfg.SessionProfileTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "secret")
	t.Setenv("PORTAL_PAGINATION_PAGE_SIZE", "25")
	t.Setenv("PORTAL_SESSION_PROFILE_TIMEOUT", "750ms")
	t.Setenv("PORTAL_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 25, cfg.DefaultPageSize)
	require.Equal(t, 750*time.Millisecond, cfg.SessionProfileTimeout)
	require.Equal(t, ":9090", cfg.HTTPAddress())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "secret")
	t.Setenv("PORTAL_JWT_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadSeedSettings(t *testing.T) {
	t.Setenv("PORTAL_JWT_SECRET", "secret")
	t.Setenv("PORTAL_SEED_ENABLED", "true")
	t.Setenv("PORTAL_SEED_TOKEN", "bootstrap")
	t.Setenv("PORTAL_ADMIN_EMAIL", " Head@School.Test ")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.SeedEnabled)
	require.Equal(t, "bootstrap", cfg.SeedToken)
	require.Equal(t, "head@school.test", cfg.AdminEmail)
	require.Equal(t, "Administrator", cfg.AdminName)
	require.Equal(t, "*", cfg.CORSAllowOrigins)
}
