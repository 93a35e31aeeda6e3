package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("LISTER_TEST_INT", " 7 ")
	t.Setenv("LISTER_TEST_BAD_INT", "seven")
	t.Setenv("LISTER_TEST_BOOL", "true")
	t.Setenv("LISTER_TEST_DURATION", "1500ms")
	t.Setenv("LISTER_TEST_MILLIS", "250")
	t.Setenv("LISTER_TEST_BLANK", "  ")

	n, ok, err := EnvInt("LISTER_TEST_INT")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 7, n)

	_, _, err = EnvInt("LISTER_TEST_BAD_INT")
	require.ErrorContains(t, err, "LISTER_TEST_BAD_INT")

	b, ok, err := EnvBool("LISTER_TEST_BOOL")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, b)

	d, ok, err := EnvDuration("LISTER_TEST_DURATION")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1500*time.Millisecond, d)

	d, _, err = EnvDuration("LISTER_TEST_MILLIS")
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, d)

	_, ok = EnvString("LISTER_TEST_BLANK")
	require.False(t, ok)
	_, ok = EnvString("LISTER_TEST_UNSET")
	require.False(t, ok)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LISTER_MAX_RETRIES", "5")
	t.Setenv("LISTER_RETRY_DELAY", "3s")
	t.Setenv("LISTER_HEADLESS", "1")
	t.Setenv("LISTER_REPORT_FORMAT", "both")
	t.Setenv("CHATWORK_ENABLED", "true")
	t.Setenv("CHATWORK_API_KEY", "token")
	t.Setenv("CHATWORK_ROOM_ID", "99")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	require.Equal(t, 5, cfg.MaxRetries)
	require.Equal(t, 3*time.Second, cfg.RetryDelay)
	require.True(t, cfg.Headless)
	require.Equal(t, "both", cfg.ReportFormat)
	require.True(t, cfg.Chatwork.Enabled)
	require.Equal(t, "token", cfg.Chatwork.APIKey)
	require.Equal(t, "99", cfg.Chatwork.RoomID)
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	t.Setenv("LISTER_ELEMENT_TIMEOUT", "soon")
	cfg := DefaultConfig()
	require.ErrorContains(t, cfg.ApplyEnv(), "LISTER_ELEMENT_TIMEOUT")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LISTER_TEST_DOTENV=from-file\nLISTER_TEST_KEEP=from-file\n"), 0o644))
	t.Setenv("LISTER_TEST_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("LISTER_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	require.Equal(t, "from-file", os.Getenv("LISTER_TEST_DOTENV"))
	require.Equal(t, "from-env", os.Getenv("LISTER_TEST_KEEP"))
}
