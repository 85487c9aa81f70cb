package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SMTP_HOST", "")

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	require.Equal(t, 7*24*time.Hour, cfg.InviteTTL)
	require.Equal(t, time.Hour, cfg.ResetTTL)
	require.True(t, cfg.SMTP.StartTLS)
	require.Empty(t, cfg.SMTP.Host)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("INVITE_TTL", "48h")
	t.Setenv("RESET_TTL", "30") // minutes
	t.Setenv("SMTP_STARTTLS", "false")
	t.Setenv("MAX_CONCURRENT_IMPORTS", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, 48*time.Hour, cfg.InviteTTL)
	require.Equal(t, 30*time.Minute, cfg.ResetTTL)
	require.False(t, cfg.SMTP.StartTLS)
	require.Equal(t, 2, cfg.MaxConcurrentImports)
}

func TestNew_StableSigningKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_FILE", filepath.Join(dir, "roster.db"))
	t.Setenv("PEPPER_FILE", filepath.Join(dir, "pepper"))
	t.Setenv("SIGNING_KEY_FILE", filepath.Join(dir, "signing.pem"))
	t.Setenv("LOG_LEVEL", "error")

	first, err := New(LoadConfig())
	require.NoError(t, err)
	kid := first.signer.KID()
	require.NoError(t, first.db.Close())

	second, err := New(LoadConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.db.Close() })
	require.Equal(t, kid, second.signer.KID())

	rec := httptest.NewRecorder()
	second.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
