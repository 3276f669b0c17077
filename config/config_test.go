package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFile(t *testing.T, src, dstDir string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dstDir, filepath.Base(src)), data, 0o600))
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	copyFile(t, "base.yaml", dir)
	copyFile(t, "local.yaml", dir)
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_WHATSAPP_FROM", "whatsapp:+14155238886")

	cfg, err := LoadFrom("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "portal", cfg.DB.Password)
	assert.Equal(t, 10*time.Second, cfg.Twilio.Timeout)
	assert.Equal(t, "whatsapp:", cfg.Twilio.ChannelPrefix)
	assert.Equal(t, "+49", cfg.Twilio.CountryCode)
	assert.True(t, cfg.Twilio.Configured())
	assert.False(t, cfg.Trustpilot.Configured())
	assert.Equal(t, 24*time.Hour, cfg.Review.FreshnessWindow)
	assert.Equal(t, "project-documents", cfg.Supabase.DocumentBucket)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, 3, cfg.Worker.MaxRetries)
	assert.True(t, cfg.Notification.ReminderCronEnabled())
	assert.Equal(t, 48*time.Hour, cfg.Notification.ReminderDedupTTL)
	assert.Equal(t, "portal-refresh", cfg.Session.RefreshCookieName)
	assert.Equal(t, 720*time.Hour, cfg.Session.RefreshTTL)
}

func TestReminderCronCanBeDisabled(t *testing.T) {
	for _, value := range []string{`""`, `"off"`, `"Off"`} {
		dir := t.TempDir()
		copyFile(t, "base.yaml", dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ops.yaml"), []byte(
			"supabase:\n  jwt_secret: x\nnotification:\n  reminder_cron: "+value+"\n"), 0o600))

		cfg, err := LoadFrom("ops", dir)
		require.NoError(t, err, value)
		assert.False(t, cfg.Notification.ReminderCronEnabled(), value)
	}
}

func TestLoadRejectsMissingJWTSecret(t *testing.T) {
	dir := t.TempDir()
	copyFile(t, "base.yaml", dir)

	_, err := LoadFrom("production", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	dir := t.TempDir()
	copyFile(t, "base.yaml", dir)
	copyFile(t, "local.yaml", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "moon.yaml"), []byte(
		"supabase:\n  jwt_secret: x\nnotification:\n  timezone: Moon/Base\n"), 0o600))

	_, err := LoadFrom("moon", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}
