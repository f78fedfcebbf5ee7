package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	AdminUserID   int64
	AdminPasscode string
	Debug         bool

	DBDriver string
	DBDSN    string

	OCRProvider   string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	TesseractPath string
	TesseractLang string
	OCRRetries    int
	OCRTimeout    time.Duration

	ShuffleOptions    bool
	HealthAddr        string
	HeartbeatInterval time.Duration
}

// LoadConfig читает .env (если есть) и переменные окружения
func LoadConfig(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminPasscode: getEnv("ADMIN_PASSCODE", ""),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "memory")),
		DBDSN:         getEnv("DB_DSN", ""),
		OCRProvider:   strings.ToLower(getEnv("OCR_PROVIDER", "none")),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", ""),
		TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
		TesseractLang: getEnv("TESSERACT_LANG", "eng"),
		HealthAddr:    getEnv("HEALTH_ADDR", ""),
	}

	var errs []error
	var err error
	if cfg.AdminUserID, err = getInt64("ADMIN_USER_ID", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		errs = append(errs, err)
	}
	if cfg.ShuffleOptions, err = getBool("SHUFFLE_OPTIONS", false); err != nil {
		errs = append(errs, err)
	}
	retries, err := getInt64("OCR_RETRIES", 2)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.OCRRetries = int(retries)
	if cfg.OCRTimeout, err = getDuration("OCR_TIMEOUT", 90*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.HeartbeatInterval, err = getDuration("HEARTBEAT_INTERVAL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN environment variable is required"))
	}
	if c.AdminUserID <= 0 {
		errs = append(errs, errors.New("ADMIN_USER_ID environment variable is required"))
	}
	if c.AdminPasscode == "" {
		errs = append(errs, errors.New("ADMIN_PASSCODE environment variable is required"))
	}
	switch c.DBDriver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.DBDriver))
	}
	switch c.OCRProvider {
	case "openai":
		if c.OpenAIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when OCR_PROVIDER=openai"))
		}
	case "tesseract", "none":
	default:
		errs = append(errs, fmt.Errorf("OCR_PROVIDER: unknown provider %q", c.OCRProvider))
	}
	if c.OCRRetries < 1 {
		errs = append(errs, errors.New("OCR_RETRIES must be at least 1"))
	}
	return errs
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) (int64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
