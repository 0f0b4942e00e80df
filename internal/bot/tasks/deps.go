// Package tasks implements the scheduled maintenance tasks.
package tasks

import (
	"log/slog"

	"github.com/rizzard-app/rizzard/internal/config"
	"github.com/rizzard-app/rizzard/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
