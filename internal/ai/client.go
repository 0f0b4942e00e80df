// Package ai implements the model and vision gateways on top of Google's
// Gemini API. It turns a user's conversation log into persona-driven replies
// and produces text descriptions of incoming photos.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/rizzard-app/rizzard/internal/config"
	"github.com/rizzard-app/rizzard/internal/database"
)

// Client defines the AI operations used throughout the application.
type Client interface {
	// GenerateReply produces the persona's answer for a conversation log.
	// History must be ordered oldest first; the last entry is the question.
	GenerateReply(ctx context.Context, history []*database.ConversationMessage, language string) (string, error)

	// DescribeImage produces a plain-text description of an image for use
	// as model input.
	DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	cfg         config.AIConfig
	chatConfig  *genai.GenerateContentConfig
}

// NewClient creates a new Gemini AI client with the provided configuration.
func NewClient(ctx context.Context, cfg config.AIConfig, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	chatCfg := &genai.GenerateContentConfig{
		Temperature: &cfg.Temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	if cfg.Instruction != "" {
		chatCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.Instruction}}}
	}

	logger := log.With("component", "ai_client")
	logger.Info("AI client initialized successfully", "model", cfg.Model, "vision_model", cfg.VisionModel)
	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		cfg:         cfg,
		chatConfig:  chatCfg,
	}, nil
}

// GenerateReply produces the persona's answer for a conversation log.
func (c *sdkClient) GenerateReply(ctx context.Context, history []*database.ConversationMessage, language string) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("conversation history is empty")
	}

	c.log.DebugContext(ctx, "Generating reply", "history_length", len(history), "language", language)

	var contents []*genai.Content
	for _, m := range history {
		if m == nil || m.Content == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == database.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("conversation history has no usable content")
	}

	cfg := c.withLanguageHint(language)

	resp, err := c.generateContentWithRetries(ctx, c.cfg.Model, contents, cfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Reply generation failed", "error", err)
		return "", fmt.Errorf("reply generation failed: %w", err)
	}

	return c.extractText(ctx, resp, "reply")
}

// DescribeImage produces a plain-text description of an image.
func (c *sdkClient) DescribeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	if len(imageData) == 0 || mimeType == "" {
		return "", fmt.Errorf("image data and MIME type are required")
	}

	c.log.DebugContext(ctx, "Describing image", "image_size", len(imageData), "mime_type", mimeType)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(c.cfg.VisionInstruction),
			genai.NewPartFromBytes(imageData, mimeType),
		}, genai.RoleUser),
	}

	// Vision calls run without the persona instruction: the description is
	// model input, not a user-visible reply.
	cfg := &genai.GenerateContentConfig{
		Temperature:    c.chatConfig.Temperature,
		SafetySettings: c.chatConfig.SafetySettings,
	}

	resp, err := c.generateContentWithRetries(ctx, c.cfg.VisionModel, contents, cfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Image description failed", "error", err)
		return "", fmt.Errorf("image description failed: %w", err)
	}

	return c.extractText(ctx, resp, "image description")
}

// withLanguageHint returns a copy of the chat config whose system instruction
// ends with a directive to answer in the user's language.
func (c *sdkClient) withLanguageHint(language string) *genai.GenerateContentConfig {
	if language == "" {
		return c.chatConfig
	}

	copyCfg := *c.chatConfig

	var existingText string
	if c.chatConfig.SystemInstruction != nil && len(c.chatConfig.SystemInstruction.Parts) > 0 {
		existingText = c.chatConfig.SystemInstruction.Parts[0].Text
	}

	hint := fmt.Sprintf("\n\nAlways answer in the language with code %q.", language)
	copyCfg.SystemInstruction = &genai.Content{
		Parts: []*genai.Part{{Text: existingText + hint}},
	}
	return &copyCfg
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	var err error

	for i := 0; i <= c.cfg.MaxRetries; i++ {
		resp, err = c.genaiClient.Models.GenerateContent(ctx, modelName, contents, cfg)
		if err == nil {
			return resp, nil
		}

		c.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", c.cfg.MaxRetries, "error", err)

		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && (apiErr.Code == 500 || apiErr.Code == 503) {
			if i < c.cfg.MaxRetries {
				c.log.InfoContext(ctx, "Retrying Gemini API call", "delay", c.cfg.RetryDelay, "code", apiErr.Code)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(c.cfg.RetryDelay):
				}
				continue
			}
			return nil, fmt.Errorf("gemini API call failed after %d retries (APIError code %d): %w", c.cfg.MaxRetries, apiErr.Code, err)
		}

		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}
	return nil, err
}

func (c *sdkClient) extractText(ctx context.Context, resp *genai.GenerateContentResponse, op string) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "operation", op, "reason", reasonMsg)
		return "", fmt.Errorf("%s blocked by safety filter: %s", op, reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "operation", op, "finish_reason", finishReason)
		return "", fmt.Errorf("%s returned no content, finish reason: %s", op, finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%s returned empty text", op)
	}

	return text, nil
}
