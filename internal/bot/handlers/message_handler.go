package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/rizzard-app/rizzard/internal/analytics"
	"github.com/rizzard-app/rizzard/internal/catalog"
)

// NewMessageHandler returns the default handler for non-command updates. Text
// goes through the profile state machine first and falls through to the
// debounced coaching pipeline; photos always go to the vision pipeline.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if msg.Text == "" && msg.Caption == "" && len(msg.Photo) == 0 {
		log.DebugContext(ctx, "Ignoring update with empty content", "update_id", update.ID)
		return
	}

	userKey := UserKey(h.deps, msg.From.ID)
	chatID := msg.Chat.ID

	if len(msg.Photo) > 0 {
		h.handlePhoto(ctx, b, msg, userKey, chatID)
		return
	}

	fx := &chatEffects{b: b, chatID: chatID}
	handled, err := h.deps.Session.HandleText(ctx, userKey, msg.Text, fx)
	if err != nil {
		log.ErrorContext(ctx, "State machine failed on text input", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, h.deps, chatID, userKey)
		return
	}
	if handled {
		return
	}

	ScheduleAnswer(h.deps, b, chatID, userKey, msg.Text)
}

func (h messageHandler) handlePhoto(ctx context.Context, b *bot.Bot, msg *models.Message, userKey string, chatID int64) {
	log := h.deps.Logger.With("handler", "photo")
	log.InfoContext(ctx, "Handling photo message", "chat_id", chatID, "user_key", userKey)

	lang := LanguageFor(ctx, h.deps, userKey)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: catalog.Lookup(lang, "processingPhoto", nil)}); err != nil {
		log.WarnContext(ctx, "Failed to send photo notice", "error", err, "chat_id", chatID)
	}
	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionUploadPhoto})

	best := BestPhoto(msg.Photo)
	data, mimeType, err := DownloadPhoto(ctx, b, h.deps.Config.Telegram.Token, best.FileID)
	if err != nil {
		log.ErrorContext(ctx, "Photo download failed", "error", err, "chat_id", chatID, "file_id", best.FileID)
		SendLocalizedError(ctx, b, h.deps, chatID, userKey)
		return
	}

	description, err := h.deps.AIClient.DescribeImage(ctx, data, mimeType)
	if err != nil {
		log.ErrorContext(ctx, "Image description failed", "error", err, "chat_id", chatID)
		SendLocalizedError(ctx, b, h.deps, chatID, userKey)
		return
	}

	// The description stands in for the image; the caption rides along as
	// the user's own words.
	question := fmt.Sprintf("[IMAGE ANALYSIS] %s", description)
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		question += fmt.Sprintf("\n\n[USER MESSAGE] %s", caption)
	}

	// The analysis notice already covers the waiting, and a photo is a
	// complete question on its own, so it skips the debounce window.
	RecordAndAnswer(ctx, b, h.deps, chatID, userKey, question)

	h.deps.Analytics.Track(ctx, analytics.Event{
		Channel: "messages",
		Event:   "photo_analyzed",
		UserID:  userKey,
		Icon:    "📷",
		Tags:    map[string]string{"language": lang},
	})
}
