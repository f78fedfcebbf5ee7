package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"TELEGRAM_BOT_TOKEN", "ADMIN_USER_ID", "ADMIN_PASSCODE", "DEBUG",
	"DB_DRIVER", "DB_DSN", "OCR_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"TESSERACT_PATH", "TESSERACT_LANG", "OCR_RETRIES", "OCR_TIMEOUT",
	"SHUFFLE_OPTIONS", "HEALTH_ADDR", "HEARTBEAT_INTERVAL",
}

// clearEnv убирает переменные на время теста и восстанавливает их после
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadConfig_FromDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"TELEGRAM_BOT_TOKEN=123:abc\n"+
			"ADMIN_USER_ID=42\n"+
			"ADMIN_PASSCODE=s3cret\n"+
			"DB_DRIVER=SQLite\n"+
			"OCR_PROVIDER=tesseract\n"+
			"TESSERACT_LANG=eng+rus\n"+
			"SHUFFLE_OPTIONS=true\n"+
			"HEARTBEAT_INTERVAL=1m\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.AdminUserID)
	assert.Equal(t, "s3cret", cfg.AdminPasscode)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "tesseract", cfg.OCRProvider)
	assert.Equal(t, "tesseract", cfg.TesseractPath)
	assert.Equal(t, "eng+rus", cfg.TesseractLang)
	assert.True(t, cfg.ShuffleOptions)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 2, cfg.OCRRetries)
	assert.Equal(t, 90*time.Second, cfg.OCRTimeout)
	assert.Equal(t, time.Minute, cfg.HeartbeatInterval)
}

func TestLoadConfig_EnvironmentWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ADMIN_PASSCODE=from-file\n"), 0o600))

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_ID", "1")
	t.Setenv("ADMIN_PASSCODE", "from-env")
	t.Setenv("OCR_PROVIDER", "none")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AdminPasscode)
	assert.Equal(t, "memory", cfg.DBDriver)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(missingFile(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN")
	assert.ErrorContains(t, err, "ADMIN_USER_ID")
	assert.ErrorContains(t, err, "ADMIN_PASSCODE")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadConfig_OCRDisabledByDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_ID", "1")
	t.Setenv("ADMIN_PASSCODE", "pass")

	cfg, err := LoadConfig(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.OCRProvider)
	assert.Empty(t, cfg.OpenAIKey)
}

func TestLoadConfig_OpenAIRequiresKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_ID", "1")
	t.Setenv("ADMIN_PASSCODE", "pass")
	t.Setenv("OCR_PROVIDER", "OpenAI")

	_, err := LoadConfig(missingFile(t))
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := LoadConfig(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.OCRProvider)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ADMIN_USER_ID", "not-a-number")
	t.Setenv("ADMIN_PASSCODE", "pass")
	t.Setenv("DB_DRIVER", "mongo")
	t.Setenv("OCR_PROVIDER", "none")
	t.Setenv("HEARTBEAT_INTERVAL", "often")
	t.Setenv("OCR_RETRIES", "0")

	_, err := LoadConfig(missingFile(t))
	require.Error(t, err)
	assert.ErrorContains(t, err, "ADMIN_USER_ID")
	assert.ErrorContains(t, err, "DB_DRIVER")
	assert.ErrorContains(t, err, "HEARTBEAT_INTERVAL")
	assert.ErrorContains(t, err, "OCR_RETRIES")
}
