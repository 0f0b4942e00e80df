package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123456789:test-token"
ai:
  api_key: "test-api-key"
`

func TestLoadConfig(t *testing.T) {
	t.Run("Minimal File With Defaults", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		if cfg.Telegram.Token != "123456789:test-token" {
			t.Errorf("token = %q", cfg.Telegram.Token)
		}
		if cfg.AI.Model != DefaultAIModel {
			t.Errorf("model = %q, want default %q", cfg.AI.Model, DefaultAIModel)
		}
		if cfg.Dispatch.DebounceWindow != DefaultDebounceWindow {
			t.Errorf("debounce window = %v, want default %v", cfg.Dispatch.DebounceWindow, DefaultDebounceWindow)
		}
		if cfg.Database.MaxHistoryMessages != DefaultMaxHistoryMessages {
			t.Errorf("max history = %d, want default %d", cfg.Database.MaxHistoryMessages, DefaultMaxHistoryMessages)
		}
		if cfg.AI.Instruction == "" {
			t.Error("persona instruction default is empty")
		}
	})

	t.Run("File Overrides Defaults", func(t *testing.T) {
		path := writeConfig(t, `
telegram:
  token: "123456789:test-token"
  dev_mode: true
ai:
  api_key: "test-api-key"
dispatch:
  debounce_window: 3s
database:
  max_history_messages: 25
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		if cfg.Dispatch.DebounceWindow != 3*time.Second {
			t.Errorf("debounce window = %v, want 3s", cfg.Dispatch.DebounceWindow)
		}
		if cfg.Database.MaxHistoryMessages != 25 {
			t.Errorf("max history = %d, want 25", cfg.Database.MaxHistoryMessages)
		}
		if !cfg.Telegram.DevMode {
			t.Error("dev_mode = false, want true")
		}
	})

	t.Run("Missing Required Token Fails Validation", func(t *testing.T) {
		path := writeConfig(t, `
ai:
  api_key: "test-api-key"
`)

		if _, err := LoadConfig(path); err == nil {
			t.Fatal("LoadConfig() error = nil, want validation failure for missing token")
		}
	})

	t.Run("Missing File Uses Defaults And Env", func(t *testing.T) {
		t.Setenv("BOT_TELEGRAM_TOKEN", "123456789:env-token")
		t.Setenv("BOT_AI_API_KEY", "env-api-key")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if cfg.Telegram.Token != "123456789:env-token" {
			t.Errorf("token = %q, want env value", cfg.Telegram.Token)
		}
		if cfg.AI.APIKey != "env-api-key" {
			t.Errorf("api key = %q, want env value", cfg.AI.APIKey)
		}
	})

	t.Run("Scheduler Task Defaults Present", func(t *testing.T) {
		path := writeConfig(t, minimalConfig)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		task, ok := cfg.Scheduler.Tasks["sql_maintenance"]
		if !ok {
			t.Fatal("sql_maintenance task missing from defaults")
		}
		if !task.Enabled || task.Schedule == "" {
			t.Errorf("sql_maintenance task = %+v, want enabled with schedule", task)
		}
		if _, ok := cfg.Scheduler.Tasks["conversation_trim"]; !ok {
			t.Error("conversation_trim task missing from defaults")
		}
	})
}
