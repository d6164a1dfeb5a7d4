package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Remote backends for the spreadsheet mirror.
const (
	RemoteGoogle = "google"
	RemoteFile   = "file"
	RemoteMemory = "memory"
	RemoteNone   = "none"
)

var validRemotes = []string{RemoteGoogle, RemoteFile, RemoteMemory, RemoteNone}

type Config struct {
	// Local store
	DBPath string

	// Preferences file
	PrefsPath string

	// Remote spreadsheet
	Remote    string
	RemoteDir string

	// Google OAuth
	GoogleOAuthClientFile string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenFile  string
	GoogleRedirectURL     string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string
	ScanMaxBytes int

	// Background push
	PushWorkers int
	PushTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		DBPath:    getEnv("STRUK_DB_PATH", "./data/struk.db"),
		PrefsPath: getEnv("STRUK_PREFS_PATH", "./data/prefs.yaml"),

		Remote:    strings.ToLower(getEnv("STRUK_REMOTE", RemoteGoogle)),
		RemoteDir: getEnv("STRUK_REMOTE_DIR", "./data/sheets"),

		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", "./data/token.json"),
		GoogleRedirectURL:     getEnv("GOOGLE_OAUTH_REDIRECT_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", ""),
		ScanMaxBytes: getEnvInt("SCAN_MAX_BYTES", 5<<20),

		PushWorkers: getEnvInt("PUSH_WORKERS", 2),
		PushTimeout: getEnvDuration("PUSH_TIMEOUT", 30*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if err := ensureDir(c.DBPath); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create database directory: %v", err))
	}

	if !slices.Contains(validRemotes, c.Remote) {
		errors = append(errors, fmt.Sprintf("invalid remote '%s': must be one of %v", c.Remote, validRemotes))
	}
	if c.Remote == RemoteFile && c.RemoteDir == "" {
		errors = append(errors, "STRUK_REMOTE_DIR cannot be empty when using the file remote")
	}

	// Credentials are optional until a sheet command runs, but a named
	// client file must exist.
	if c.Remote == RemoteGoogle && c.GoogleOAuthClientFile != "" {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}

	if c.ScanMaxBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid scan limit %d: must be positive", c.ScanMaxBytes))
	} else if c.ScanMaxBytes > 20<<20 {
		errors = append(errors, fmt.Sprintf("invalid scan limit %d: must be at most 20 MiB", c.ScanMaxBytes))
	}

	if c.PushWorkers < 1 {
		errors = append(errors, fmt.Sprintf("invalid push workers %d: must be at least 1", c.PushWorkers))
	} else if c.PushWorkers > 16 {
		errors = append(errors, fmt.Sprintf("invalid push workers %d: must be at most 16", c.PushWorkers))
	}

	if c.PushTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid push timeout %v: must be at least 1 second", c.PushTimeout))
	} else if c.PushTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid push timeout %v: must be at most 5 minutes", c.PushTimeout))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
