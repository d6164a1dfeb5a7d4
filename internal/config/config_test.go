package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		DBPath:       filepath.Join(t.TempDir(), "data", "struk.db"),
		Remote:       RemoteGoogle,
		RemoteDir:    "./data/sheets",
		ScanMaxBytes: 5 << 20,
		PushWorkers:  2,
		PushTimeout:  30 * time.Second,
		LogFormat:    "text",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "file remote",
			mutate:  func(c *Config) { c.Remote = RemoteFile },
			wantErr: false,
		},
		{
			name:        "empty database path",
			mutate:      func(c *Config) { c.DBPath = "" },
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name:        "invalid remote",
			mutate:      func(c *Config) { c.Remote = "dropbox" },
			wantErr:     true,
			errorString: "invalid remote 'dropbox': must be one of [google file memory none]",
		},
		{
			name: "file remote without directory",
			mutate: func(c *Config) {
				c.Remote = RemoteFile
				c.RemoteDir = ""
			},
			wantErr:     true,
			errorString: "STRUK_REMOTE_DIR cannot be empty",
		},
		{
			name:        "missing client file",
			mutate:      func(c *Config) { c.GoogleOAuthClientFile = "/nonexistent/client.json" },
			wantErr:     true,
			errorString: "Google OAuth client file does not exist: /nonexistent/client.json",
		},
		{
			name:        "scan limit too large",
			mutate:      func(c *Config) { c.ScanMaxBytes = 50 << 20 },
			wantErr:     true,
			errorString: "must be at most 20 MiB",
		},
		{
			name:        "zero push workers",
			mutate:      func(c *Config) { c.PushWorkers = 0 },
			wantErr:     true,
			errorString: "invalid push workers 0: must be at least 1",
		},
		{
			name:        "push timeout too short",
			mutate:      func(c *Config) { c.PushTimeout = 100 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid push timeout 100ms: must be at least 1 second",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Remote = "dropbox"
	cfg.PushWorkers = 100
	cfg.LogFormat = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if got := strings.Count(err.Error(), "\n- "); got != 3 {
		t.Errorf("Validate() reported %d problems, want 3:\n%v", got, err)
	}
}

func TestConfig_ValidateCreatesDatabaseDirectory(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, err := os.Stat(filepath.Dir(cfg.DBPath)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, key := range []string{"STRUK_DB_PATH", "STRUK_REMOTE", "PUSH_WORKERS", "PUSH_TIMEOUT", "SCAN_MAX_BYTES"} {
			t.Setenv(key, "")
		}

		cfg := Load()

		if cfg.DBPath != "./data/struk.db" {
			t.Errorf("Load() DBPath = %v, want ./data/struk.db", cfg.DBPath)
		}
		if cfg.Remote != RemoteGoogle {
			t.Errorf("Load() Remote = %v, want google", cfg.Remote)
		}
		if cfg.PushWorkers != 2 {
			t.Errorf("Load() PushWorkers = %v, want 2", cfg.PushWorkers)
		}
		if cfg.PushTimeout != 30*time.Second {
			t.Errorf("Load() PushTimeout = %v, want 30s", cfg.PushTimeout)
		}
		if cfg.ScanMaxBytes != 5<<20 {
			t.Errorf("Load() ScanMaxBytes = %v, want 5 MiB", cfg.ScanMaxBytes)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("STRUK_DB_PATH", "/tmp/test.db")
		t.Setenv("STRUK_REMOTE", "FILE")
		t.Setenv("PUSH_WORKERS", "4")
		t.Setenv("PUSH_TIMEOUT", "45s")
		t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")

		cfg := Load()

		if cfg.DBPath != "/tmp/test.db" {
			t.Errorf("Load() DBPath = %v, want /tmp/test.db", cfg.DBPath)
		}
		if cfg.Remote != RemoteFile {
			t.Errorf("Load() Remote = %v, want file", cfg.Remote)
		}
		if cfg.PushWorkers != 4 {
			t.Errorf("Load() PushWorkers = %v, want 4", cfg.PushWorkers)
		}
		if cfg.PushTimeout != 45*time.Second {
			t.Errorf("Load() PushTimeout = %v, want 45s", cfg.PushTimeout)
		}
		if cfg.GeminiModel != "gemini-2.5-pro" {
			t.Errorf("Load() GeminiModel = %v, want gemini-2.5-pro", cfg.GeminiModel)
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		t.Setenv("PUSH_WORKERS", "invalid")
		t.Setenv("PUSH_TIMEOUT", "invalid")

		cfg := Load()

		if cfg.PushWorkers != 2 {
			t.Errorf("Load() PushWorkers = %v, want 2 (default for invalid input)", cfg.PushWorkers)
		}
		if cfg.PushTimeout != 30*time.Second {
			t.Errorf("Load() PushTimeout = %v, want 30s (default for invalid input)", cfg.PushTimeout)
		}
	})
}
