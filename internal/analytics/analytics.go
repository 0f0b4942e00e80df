// Package analytics publishes product events to LogSnag. Publishing is best
// effort: failures are logged and never propagate to the caller, and a
// disabled tracker is a no-op so call sites need no guards.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rizzard-app/rizzard/internal/config"
)

const (
	logEndpoint      = "https://api.logsnag.com/v1/log"
	identifyEndpoint = "https://api.logsnag.com/v1/identify"

	requestTimeout = 5 * time.Second
)

// Event is a single analytics occurrence.
type Event struct {
	Channel     string            `json:"channel"`
	Event       string            `json:"event"`
	UserID      string            `json:"user_id,omitempty"`
	Description string            `json:"description,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// Tracker publishes events and user traits.
type Tracker interface {
	Track(ctx context.Context, event Event)
	Identify(ctx context.Context, userID string, properties map[string]string)
}

// NewTracker creates a tracker from config. When analytics is disabled or the
// token is missing it returns a no-op tracker.
func NewTracker(cfg config.AnalyticsConfig, log *slog.Logger) Tracker {
	if !cfg.Enabled || cfg.Token == "" {
		return noopTracker{}
	}
	return &logsnagTracker{
		cfg:              cfg,
		log:              log.With("component", "analytics"),
		client:           &http.Client{Timeout: requestTimeout},
		endpoint:         logEndpoint,
		identifyEndpoint: identifyEndpoint,
	}
}

type noopTracker struct{}

func (noopTracker) Track(context.Context, Event) {}

func (noopTracker) Identify(context.Context, string, map[string]string) {}

type logsnagTracker struct {
	cfg              config.AnalyticsConfig
	log              *slog.Logger
	client           *http.Client
	endpoint         string
	identifyEndpoint string
}

func (t *logsnagTracker) Track(ctx context.Context, event Event) {
	payload := struct {
		Project string `json:"project"`
		Event
	}{
		Project: t.cfg.Project,
		Event:   event,
	}
	t.post(ctx, t.endpoint, payload, "event "+event.Event)
}

func (t *logsnagTracker) Identify(ctx context.Context, userID string, properties map[string]string) {
	payload := struct {
		Project    string            `json:"project"`
		UserID     string            `json:"user_id"`
		Properties map[string]string `json:"properties"`
	}{
		Project:    t.cfg.Project,
		UserID:     userID,
		Properties: properties,
	}
	t.post(ctx, t.identifyEndpoint, payload, "identify "+userID)
}

func (t *logsnagTracker) post(ctx context.Context, url string, payload any, op string) {
	body, err := json.Marshal(payload)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to encode analytics payload", "op", op, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to build analytics request", "op", op, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.WarnContext(ctx, "Analytics publish failed", "op", op, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.log.WarnContext(ctx, "Analytics publish rejected",
			"op", op,
			"status", resp.StatusCode,
			"response", string(snippet))
		return
	}

	t.log.DebugContext(ctx, "Analytics payload published", "op", op)
}
