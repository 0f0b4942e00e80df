package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/rizzard-app/rizzard/internal/analytics"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler processes the /start command using injected dependencies.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userKey := UserKey(h.deps, update.Message.From.ID)
	log.InfoContext(ctx, "Handling /start command", "chat_id", update.Message.Chat.ID, "user_key", userKey)

	fx := &chatEffects{b: b, chatID: update.Message.Chat.ID}
	if err := h.deps.Session.HandleStart(ctx, userKey, update.Message.From.FirstName, fx); err != nil {
		log.ErrorContext(ctx, "Failed to handle /start", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, h.deps, update.Message.Chat.ID, userKey)
		return
	}

	h.deps.Analytics.Track(ctx, analytics.Event{
		Channel: "onboarding",
		Event:   "start",
		UserID:  userKey,
		Icon:    "🚀",
	})
}
