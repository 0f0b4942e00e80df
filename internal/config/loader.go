package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from, in order of precedence:
// BOT_* environment variables, the YAML file at configPath, and defaults.
// A missing config file is fine; missing required values are not.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// viper wraps os.ErrNotExist differently when an explicit file is set
			if !strings.Contains(err.Error(), "no such file") {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
		// Config file not found is okay, defaults and env vars still apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", true)

	// Registering the secrets with empty defaults makes their BOT_* env
	// variables visible to Unmarshal even without a config file.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.dev_mode", false)

	v.SetDefault("ai.api_key", "")

	v.SetDefault("ai.model", DefaultAIModel)
	v.SetDefault("ai.vision_model", DefaultAIVisionModel)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.instruction", DefaultAIInstruction)
	v.SetDefault("ai.vision_instruction", DefaultAIVisionInstruction)
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.retry_delay", DefaultAIRetryDelay)
	v.SetDefault("ai.timeout", DefaultAITimeout)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.max_history_messages", DefaultMaxHistoryMessages)

	v.SetDefault("dispatch.debounce_window", DefaultDebounceWindow)
	v.SetDefault("dispatch.comment_pause", DefaultCommentPause)
	v.SetDefault("dispatch.opener_pause", DefaultOpenerPause)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", DefaultServerAddr)

	v.SetDefault("analytics.enabled", false)
	v.SetDefault("analytics.project", DefaultAnalyticsProject)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{
			"enabled":  true,
			"schedule": "0 3 * * *",
		},
		"conversation_trim": map[string]any{
			"enabled":  true,
			"schedule": "0 4 * * *",
		},
	})
}
