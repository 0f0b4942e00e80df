package handlers

import (
	"log/slog"

	"github.com/rizzard-app/rizzard/internal/ai"
	"github.com/rizzard-app/rizzard/internal/analytics"
	"github.com/rizzard-app/rizzard/internal/config"
	"github.com/rizzard-app/rizzard/internal/database"
	"github.com/rizzard-app/rizzard/internal/dispatch"
	"github.com/rizzard-app/rizzard/internal/session"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	AIClient  ai.Client
	Session   *session.Manager
	Debouncer *dispatch.Debouncer
	Shaper    *dispatch.Shaper
	Analytics analytics.Tracker
}
