package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/rizzard-app/rizzard/internal/analytics"
	"github.com/rizzard-app/rizzard/internal/database"
	"github.com/rizzard-app/rizzard/internal/reply"
)

// chatAPI is the slice of the Telegram client the answer pipeline needs.
// *bot.Bot satisfies it.
type chatAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// RecordQuestion appends the user's turn to the conversation log.
func RecordQuestion(ctx context.Context, deps HandlerDeps, userKey, content string) error {
	return deps.Store.AppendConversationMessage(ctx, &database.ConversationMessage{
		UserKey:   userKey,
		Role:      database.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// ScheduleAnswer arms the user's debounce timer with the message text. Each
// newer message replaces the pending one, so when the window finally elapses
// only the last text of a burst is recorded and sent to the model; the
// superseded intermediates are discarded.
func ScheduleAnswer(deps HandlerDeps, b chatAPI, chatID int64, userKey, text string) {
	deps.Debouncer.Schedule(userKey, func() {
		ctx, cancel := context.WithTimeout(context.Background(), aiProcessingTimeout)
		defer cancel()
		RecordAndAnswer(ctx, b, deps, chatID, userKey, text)
	})
}

// RecordAndAnswer appends the user's turn and runs the answer pipeline
// immediately. The photo pipeline calls it directly: an image already shows
// an analysis notice, so the debounce window never applies there.
func RecordAndAnswer(ctx context.Context, b chatAPI, deps HandlerDeps, chatID int64, userKey, content string) {
	if err := RecordQuestion(ctx, deps, userKey, content); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to record question", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, deps, chatID, userKey)
		return
	}
	AnswerNow(ctx, b, deps, chatID, userKey)
}

// AnswerNow runs the full answer pipeline for the user's conversation.
func AnswerNow(ctx context.Context, b chatAPI, deps HandlerDeps, chatID int64, userKey string) {
	log := deps.Logger.With("handler", "answer")

	maxHistory := deps.Config.Database.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = 100
		log.WarnContext(ctx, "Invalid maxHistoryMessages in config, using default", "default", maxHistory)
	}

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	lang := LanguageFor(ctx, deps, userKey)

	history, err := deps.Store.GetConversationHistory(ctx, userKey, maxHistory)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load conversation history", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, deps, chatID, userKey)
		return
	}
	if len(history) == 0 {
		log.WarnContext(ctx, "Answer triggered with empty conversation", "user_key", userKey)
		return
	}

	raw, err := deps.AIClient.GenerateReply(ctx, history, lang)
	if err != nil {
		log.ErrorContext(ctx, "Reply generation failed", "error", err, "user_key", userKey)
		SendLocalizedError(ctx, b, deps, chatID, userKey)
		return
	}

	// The raw model output is stored so the conversation the model sees next
	// time matches what it produced, structured or not.
	saveErr := deps.Store.AppendConversationMessage(ctx, &database.ConversationMessage{
		UserKey:   userKey,
		Role:      database.RoleAssistant,
		Content:   raw,
		Timestamp: time.Now().UTC(),
	})
	if saveErr != nil {
		log.ErrorContext(ctx, "Failed to save assistant turn", "error", saveErr, "user_key", userKey)
	}

	parsed := reply.Parse(raw)
	if err := deps.Shaper.Shape(ctx, &chatSink{b: b, chatID: chatID}, parsed); err != nil {
		log.ErrorContext(ctx, "Failed to deliver shaped reply", "error", err, "chat_id", chatID)
		return
	}

	deps.Analytics.Track(ctx, analytics.Event{
		Channel: "messages",
		Event:   "question_answered",
		UserID:  userKey,
		Icon:    "💬",
		Tags:    map[string]string{"language": lang, "kind": parsed.Kind.String()},
	})
}

type chatSink struct {
	b      chatAPI
	chatID int64
}

func (s *chatSink) Send(ctx context.Context, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	_, err := s.b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: s.chatID, Text: text})
	return err
}
