package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/rizzard-app/rizzard/internal/catalog"
	"github.com/rizzard-app/rizzard/internal/session"
)

const (
	photoDownloadTimeout = 30 * time.Second
	aiProcessingTimeout  = 2 * time.Minute
	sendMessageTimeout   = 10 * time.Second
)

// UserKey derives the storage key for a Telegram user. Dev mode keys carry a
// suffix so a development bot sharing the database never touches production
// rows.
func UserKey(deps HandlerDeps, userID int64) string {
	key := strconv.FormatInt(userID, 10)
	if deps.Config.Telegram.DevMode {
		key += "-dev"
	}
	return key
}

// LanguageFor loads the user's configured language, defaulting to English.
func LanguageFor(ctx context.Context, deps HandlerDeps, userKey string) string {
	profile, err := deps.Store.GetUserProfile(ctx, userKey)
	if err != nil || profile == nil || profile.Language == "" {
		return "en"
	}
	return profile.Language
}

// chatEffects adapts a Telegram chat to the session state machine's Effects.
// promptID is the message holding the inline keyboard the user tapped; zero
// means there is nothing to edit and EditPrompt degrades to Reply.
type chatEffects struct {
	b        *bot.Bot
	chatID   int64
	promptID int
}

func (e *chatEffects) Reply(ctx context.Context, text string, keyboard session.Keyboard) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := e.b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:      e.chatID,
		Text:        text,
		ReplyMarkup: inlineMarkup(keyboard),
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (e *chatEffects) EditPrompt(ctx context.Context, text string, keyboard session.Keyboard) error {
	if e.promptID == 0 {
		return e.Reply(ctx, text, keyboard)
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := e.b.EditMessageText(sendCtx, &bot.EditMessageTextParams{
		ChatID:      e.chatID,
		MessageID:   e.promptID,
		Text:        text,
		ReplyMarkup: inlineMarkup(keyboard),
	})
	if err != nil {
		return fmt.Errorf("failed to edit prompt message: %w", err)
	}
	return nil
}

func inlineMarkup(keyboard session.Keyboard) models.ReplyMarkup {
	if len(keyboard) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.Data,
			})
		}
		rows = append(rows, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SendLocalizedError sends the processing-failure message in the user's
// language. Errors here are logged by the caller's handler logger only.
func SendLocalizedError(ctx context.Context, b chatAPI, deps HandlerDeps, chatID int64, userKey string) {
	lang := LanguageFor(ctx, deps, userKey)
	text := catalog.Lookup(lang, "errorProcessing", nil)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		deps.Logger.ErrorContext(ctx, "Failed to send error message", "error", err, "chat_id", chatID)
	}
}

// BestPhoto picks the highest-resolution variant from a Telegram photo set.
func BestPhoto(photoSizes []models.PhotoSize) models.PhotoSize {
	var best models.PhotoSize
	bestQuality := 0
	for _, photo := range photoSizes {
		quality := photo.Width * photo.Height
		if quality > bestQuality {
			bestQuality = quality
			best = photo
		}
	}
	return best
}

// DownloadPhoto downloads a photo from Telegram's file API using the provided
// file ID. It returns the photo data, detected MIME type, and any error.
func DownloadPhoto(ctx context.Context, b *bot.Bot, token, fileID string) (data []byte, mimeType string, err error) {
	if token == "" {
		return nil, "", fmt.Errorf("empty token provided for photo download")
	}
	if fileID == "" {
		return nil, "", fmt.Errorf("empty fileID provided for photo download")
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, photoDownloadTimeout)
	defer cancel()

	fileObj, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, "", fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request for file download: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close download response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("unexpected status code %d downloading file: %s", resp.StatusCode, string(bodyBytes))
	}

	const maxDownloadSize = 10 * 1024 * 1024
	data, err = io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("received empty file data for file ID %s", fileID)
	}

	mimeType = http.DetectContentType(data)
	return data, mimeType, nil
}
