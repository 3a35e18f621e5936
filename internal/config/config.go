package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the HTTP API, the Telegram bot
// and the backing services.
type Config struct {
	ListenAddr          string
	MySQLDSN            string
	BotToken            string
	WebAppURL           string
	StaticDir           string
	PanelBaseURL        string
	PanelAuthPath       string
	PanelTimeout        time.Duration
	JellyseerrURL       string
	JellyseerrAPIKey    string
	TMDBAPIKey          string
	SessionHashKey      string
	SessionBlockKey     string
	SessionTTL          time.Duration
	SecureCookies       bool
	CreditResetInterval time.Duration
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":3000"),
		WebAppURL:           getEnv("WEB_APP_URL", "http://localhost:3000"),
		StaticDir:           getEnv("STATIC_DIR", ""),
		PanelBaseURL:        strings.TrimRight(getEnv("PANEL_BASE_URL", "http://xfast.online:8080"), "/"),
		PanelAuthPath:       getEnv("PANEL_AUTH_PATH", "/panel_api.php"),
		PanelTimeout:        time.Second * time.Duration(getInt("PANEL_TIMEOUT_SECONDS", 10)),
		JellyseerrURL:       strings.TrimRight(os.Getenv("JELLYSEERR_URL"), "/"),
		SessionTTL:          time.Hour * time.Duration(getInt("SESSION_TTL_HOURS", 24*7)),
		SecureCookies:       getBool("SECURE_COOKIES", false),
		CreditResetInterval: time.Hour * time.Duration(getInt("CREDIT_RESET_INTERVAL_HOURS", 24)),
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.JellyseerrAPIKey = os.Getenv("JELLYSEERR_API_KEY")
	cfg.TMDBAPIKey = os.Getenv("TMDB_API_KEY")
	cfg.SessionHashKey = os.Getenv("SESSION_HASH_KEY")
	cfg.SessionBlockKey = os.Getenv("SESSION_BLOCK_KEY")

	var missing []string
	if cfg.BotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if cfg.JellyseerrURL == "" {
		missing = append(missing, "JELLYSEERR_URL")
	}
	if cfg.JellyseerrAPIKey == "" {
		missing = append(missing, "JELLYSEERR_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	// Running purely off the process environment is fine.
	return nil
}
