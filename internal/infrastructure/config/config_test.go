package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config file into a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
backend:
  stream_url: "wss://fleet.example.com/ws"
  rest_url: "https://fleet.example.com/api"
  token: "test-token"
  user_id: "user-42"
reconnect:
  base_delay: 1
  max_delay: 30
  max_attempts: 5
api:
  enabled: true
  host: "127.0.0.1"
  port: 8090
`
	cfg, err := Load(writeTestConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.StreamURL != "wss://fleet.example.com/ws" {
		t.Errorf("Backend.StreamURL = %q, want %q", cfg.Backend.StreamURL, "wss://fleet.example.com/ws")
	}

	if cfg.Backend.UserID != "user-42" {
		t.Errorf("Backend.UserID = %q, want %q", cfg.Backend.UserID, "user-42")
	}

	if cfg.Reconnect.MaxAttempts != 5 {
		t.Errorf("Reconnect.MaxAttempts = %d, want 5", cfg.Reconnect.MaxAttempts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTestConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
backend:
  token: "test-token"
  user_id: "user-42"
`
	cfg, err := Load(writeTestConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Reconnect.BaseDelay != 1 {
		t.Errorf("Reconnect.BaseDelay = %d, want default 1", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxDelay != 30 {
		t.Errorf("Reconnect.MaxDelay = %d, want default 30", cfg.Reconnect.MaxDelay)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want default 8090", cfg.API.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLEETDECK_BACKEND_TOKEN", "env-token")
	t.Setenv("FLEETDECK_BACKEND_USER_ID", "env-user")

	content := `
backend:
  token: "file-token"
  user_id: "file-user"
`
	cfg, err := Load(writeTestConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.Token != "env-token" {
		t.Errorf("Backend.Token = %q, want env override %q", cfg.Backend.Token, "env-token")
	}
	if cfg.Backend.UserID != "env-user" {
		t.Errorf("Backend.UserID = %q, want env override %q", cfg.Backend.UserID, "env-user")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Backend.Token = "token"
		cfg.Backend.UserID = "user-1"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Backend.Token = "" },
			wantErr: "backend.token",
		},
		{
			name:    "missing user id",
			mutate:  func(c *Config) { c.Backend.UserID = "" },
			wantErr: "backend.user_id",
		},
		{
			name:    "bad stream scheme",
			mutate:  func(c *Config) { c.Backend.StreamURL = "http://fleet.example.com/ws" },
			wantErr: "ws:// or wss://",
		},
		{
			name:    "zero base delay",
			mutate:  func(c *Config) { c.Reconnect.BaseDelay = 0 },
			wantErr: "reconnect.base_delay",
		},
		{
			name:    "max delay below base",
			mutate:  func(c *Config) { c.Reconnect.MaxDelay = 0 },
			wantErr: "reconnect.max_delay",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 99999 },
			wantErr: "api.port",
		},
		{
			name:    "invalid relay qos",
			mutate:  func(c *Config) { c.Relay.QoS = 3 },
			wantErr: "relay.qos",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
