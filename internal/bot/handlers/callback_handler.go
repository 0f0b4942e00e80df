package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCallbackHandler returns a handler for inline keyboard taps. The wizard
// and settings keyboards both route here; the session manager interprets the
// callback data.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "callback")

	cq := update.CallbackQuery
	if cq == nil || cq.From.ID == 0 {
		log.WarnContext(ctx, "Callback handler received update without callback query", "update_id", update.ID)
		return
	}

	// Acknowledge the tap first so the client stops its spinner even if the
	// follow-up work fails.
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	userKey := UserKey(h.deps, cq.From.ID)

	var chatID int64
	var promptID int
	if cq.Message.Message != nil {
		chatID = cq.Message.Message.Chat.ID
		promptID = cq.Message.Message.ID
	} else {
		// The prompt message is inaccessible; fall back to the user's own
		// chat so replies still arrive.
		chatID = cq.From.ID
	}

	log.InfoContext(ctx, "Handling callback", "user_key", userKey, "data", cq.Data)

	fx := &chatEffects{b: b, chatID: chatID, promptID: promptID}
	if err := h.deps.Session.HandleCallback(ctx, userKey, cq.Data, fx); err != nil {
		log.ErrorContext(ctx, "Failed to handle callback", "error", err, "user_key", userKey, "data", cq.Data)
		SendLocalizedError(ctx, b, h.deps, chatID, userKey)
		return
	}

	if strings.HasPrefix(cq.Data, "set_") {
		h.identifyUser(ctx, userKey)
	}
}

// identifyUser pushes the current profile traits to analytics after a
// settings change. Best effort, like all analytics.
func (h callbackHandler) identifyUser(ctx context.Context, userKey string) {
	profile, err := h.deps.Store.GetUserProfile(ctx, userKey)
	if err != nil || profile == nil {
		return
	}
	h.deps.Analytics.Identify(ctx, userKey, map[string]string{
		"name":       profile.Name,
		"gender":     profile.Gender,
		"preference": profile.SexualPreference,
		"language":   profile.Language,
	})
}
