package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewSettingsHandler returns a handler for the /settings command.
func NewSettingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return settingsHandler{deps}.Handle
}

type settingsHandler struct {
	deps HandlerDeps
}

func (h settingsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "settings")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Settings handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userKey := UserKey(h.deps, update.Message.From.ID)
	log.InfoContext(ctx, "Handling /settings command", "chat_id", update.Message.Chat.ID, "user_key", userKey)

	fx := &chatEffects{b: b, chatID: update.Message.Chat.ID}
	if err := h.deps.Session.HandleSettings(ctx, userKey, fx); err != nil {
		log.ErrorContext(ctx, "Failed to handle /settings", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, h.deps, update.Message.Chat.ID, userKey)
	}
}
