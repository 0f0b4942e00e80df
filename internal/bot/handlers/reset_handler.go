package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/rizzard-app/rizzard/internal/catalog"
)

// NewResetHandler returns a handler for the /reset command, which wipes the
// user's own conversation log. The profile survives so the persona keeps its
// context about who it is talking to.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Reset handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userKey := UserKey(h.deps, update.Message.From.ID)
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "User requested conversation reset", "chat_id", chatID, "user_key", userKey)

	// A pending debounce timer would answer a conversation that no longer
	// exists; drop it first.
	h.deps.Debouncer.Cancel(userKey)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := h.deps.Store.DeleteConversation(timeoutCtx, userKey); err != nil {
		log.ErrorContext(ctx, "Failed to reset conversation", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, h.deps, chatID, userKey)
		return
	}

	lang := LanguageFor(ctx, h.deps, userKey)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   catalog.Lookup(lang, "resetConfirm", nil),
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send reset confirmation", "error", err, "chat_id", chatID)
	}
}
