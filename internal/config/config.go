// Package config manages application configuration from config.yaml,
// BOT_* environment variables, and default values.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config defines the application configuration for all components of the bot.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AI        AIConfig        `mapstructure:"ai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Server    ServerConfig    `mapstructure:"server"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Telegram transport settings. DevMode suffixes every
// user key with "-dev" so a sandbox bot never touches production state.
type TelegramConfig struct {
	Token   string `mapstructure:"token" validate:"required"`
	DevMode bool   `mapstructure:"dev_mode"`

	// BotInfo is populated at startup from GetMe, not from the config file.
	BotInfo *models.User `mapstructure:"-"`
}

// AIConfig holds model gateway settings. Instruction carries the persona
// prompt; VisionInstruction is the image-description prompt.
type AIConfig struct {
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	Model             string        `mapstructure:"model" validate:"required"`
	VisionModel       string        `mapstructure:"vision_model" validate:"required"`
	Temperature       float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	Instruction       string        `mapstructure:"instruction" validate:"required"`
	VisionInstruction string        `mapstructure:"vision_instruction" validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"min=0"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// DatabaseConfig holds SQLite settings and the conversation retention policy.
type DatabaseConfig struct {
	Path               string `mapstructure:"path" validate:"required"`
	MaxHistoryMessages int    `mapstructure:"max_history_messages" validate:"min=1,max=500"`
}

// DispatchConfig holds the debounce quiescence window and the inter-message
// pauses used by the response shaper.
type DispatchConfig struct {
	DebounceWindow time.Duration `mapstructure:"debounce_window" validate:"min=0"`
	CommentPause   time.Duration `mapstructure:"comment_pause" validate:"min=0"`
	OpenerPause    time.Duration `mapstructure:"opener_pause" validate:"min=0"`
}

// ServerConfig holds the HTTP health server settings.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// AnalyticsConfig holds event-tracker settings. The tracker is a no-op when
// disabled or when the token is empty.
type AnalyticsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	Project string `mapstructure:"project"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
