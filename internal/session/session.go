// Package session implements the per-user profile state machine: the /start
// onboarding wizard, the /settings edit flow and the one-shot awaiting-input
// states. It is transport agnostic; handlers supply an Effects sink that maps
// prompts and keyboards onto the chat platform.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rizzard-app/rizzard/internal/catalog"
	"github.com/rizzard-app/rizzard/internal/database"
)

// Wizard steps, stored in user_states.config_step. An empty step means the
// user is fully configured.
const (
	StepLanguage   = "language"
	StepName       = "name"
	StepBirthdate  = "birthdate"
	StepGender     = "gender"
	StepPreference = "preference"
)

// Awaiting-input kinds, stored in user_states.awaiting_input. These are
// one-shot: the next text message is consumed as the value.
const (
	AwaitName      = "name"
	AwaitBirthdate = "birthdate"
)

// Callback data prefixes for the settings and wizard keyboards.
const (
	callbackConfigPrefix = "config_"
	callbackSetPrefix    = "set_"
)

// BirthdateFormat is the display form of the accepted birthdate layout.
const BirthdateFormat = "DD/MM/YYYY"

var birthdateRe = regexp.MustCompile(`^(0[1-9]|[12][0-9]|3[01])/(0[1-9]|1[0-2])/\d{4}$`)

// Button is a single inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard, one slice per row.
type Keyboard [][]Button

// Effects is the set of chat-side actions the state machine can request.
// Reply sends a new message; EditPrompt rewrites the message that carried the
// keyboard the user just tapped.
type Effects interface {
	Reply(ctx context.Context, text string, keyboard Keyboard) error
	EditPrompt(ctx context.Context, text string, keyboard Keyboard) error
}

// Manager drives the profile state machine against the store.
type Manager struct {
	store database.Store
	log   *slog.Logger
}

// NewManager creates a session manager.
func NewManager(store database.Store, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log.With("component", "session")}
}

// HandleStart begins onboarding for a new user or greets a configured one.
// firstName seeds the profile so the persona has a name before the wizard
// asks for one.
func (m *Manager) HandleStart(ctx context.Context, userKey, firstName string, fx Effects) error {
	profile, err := m.store.GetUserProfile(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if profile != nil {
		state, err := m.store.GetUserState(ctx, userKey)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if state == nil || state.ConfigStep == "" {
			text := catalog.Lookup(profile.Language, "welcomeBack", map[string]string{"name": profile.Name})
			return fx.Reply(ctx, text, nil)
		}
		// Wizard was interrupted; restart it from the beginning.
	} else {
		profile = &database.UserProfile{
			UserKey:  userKey,
			Name:     firstName,
			Language: "en",
		}
		if err := m.store.SaveUserProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
	}

	if err := m.store.SetConfigStep(ctx, userKey, StepLanguage); err != nil {
		return fmt.Errorf("failed to set wizard step: %w", err)
	}

	// The language is not known yet, so the first prompt is bilingual.
	prompt := "Please select your preferred language:\nVeuillez sélectionner votre langue préférée :"
	return fx.Reply(ctx, prompt, languageKeyboard())
}

// HandleSettings shows the settings menu.
func (m *Manager) HandleSettings(ctx context.Context, userKey string, fx Effects) error {
	lang, err := m.language(ctx, userKey)
	if err != nil {
		return err
	}

	kb := Keyboard{
		{{Text: catalog.Lookup(lang, "name", nil), Data: "config_name"}},
		{{Text: catalog.Lookup(lang, "gender", nil), Data: "config_gender"}},
		{{Text: catalog.Lookup(lang, "sexualPreference", nil), Data: "config_sexual"}},
		{{Text: catalog.Lookup(lang, "language", nil), Data: "config_language"}},
		{{Text: catalog.Lookup(lang, "birthdate", nil), Data: "config_birthdate"}},
		{{Text: catalog.Lookup(lang, "uploadStyle", nil), Data: "config_style"}},
	}
	return fx.Reply(ctx, catalog.Lookup(lang, "settingsPrompt", nil), kb)
}

// HandleCallback processes an inline keyboard tap. Unknown data is ignored.
func (m *Manager) HandleCallback(ctx context.Context, userKey, data string, fx Effects) error {
	switch {
	case strings.HasPrefix(data, callbackConfigPrefix):
		return m.handleConfigChoice(ctx, userKey, strings.TrimPrefix(data, callbackConfigPrefix), fx)
	case strings.HasPrefix(data, callbackSetPrefix):
		rest := strings.TrimPrefix(data, callbackSetPrefix)
		field, value, ok := strings.Cut(rest, "_")
		if !ok {
			m.log.WarnContext(ctx, "Malformed callback data", "data", data)
			return nil
		}
		return m.handleSetValue(ctx, userKey, field, value, fx)
	default:
		m.log.WarnContext(ctx, "Unknown callback data", "data", data)
		return nil
	}
}

// HandleText routes a text message through the wizard and awaiting-input
// states. The wizard takes precedence over a pending awaiting-input. It
// returns handled=false when no state claims the message, in which case the
// caller should treat it as a coaching question.
func (m *Manager) HandleText(ctx context.Context, userKey, text string, fx Effects) (bool, error) {
	state, err := m.store.GetUserState(ctx, userKey)
	if err != nil {
		return false, fmt.Errorf("failed to load state: %w", err)
	}
	if state == nil {
		return false, nil
	}

	switch state.ConfigStep {
	case StepName:
		return true, m.wizardName(ctx, userKey, text, fx)
	case StepBirthdate:
		return true, m.wizardBirthdate(ctx, userKey, text, fx)
	case StepLanguage, StepGender, StepPreference:
		// These steps expect a keyboard tap; swallow stray text so it does
		// not leak into the conversation as a question.
		return true, nil
	}

	switch state.AwaitingInput {
	case AwaitName:
		return true, m.awaitedName(ctx, userKey, text, fx)
	case AwaitBirthdate:
		return true, m.awaitedBirthdate(ctx, userKey, text, fx)
	}

	return false, nil
}

func (m *Manager) handleConfigChoice(ctx context.Context, userKey, field string, fx Effects) error {
	lang, err := m.language(ctx, userKey)
	if err != nil {
		return err
	}

	switch field {
	case "name":
		if err := m.store.SetAwaitingInput(ctx, userKey, AwaitName); err != nil {
			return fmt.Errorf("failed to set awaiting input: %w", err)
		}
		return fx.EditPrompt(ctx, catalog.Lookup(lang, "askNameSettings", nil), nil)
	case "birthdate":
		if err := m.store.SetAwaitingInput(ctx, userKey, AwaitBirthdate); err != nil {
			return fmt.Errorf("failed to set awaiting input: %w", err)
		}
		text := catalog.Lookup(lang, "askBirthdate", map[string]string{"format": BirthdateFormat})
		return fx.EditPrompt(ctx, text, nil)
	case "gender":
		return fx.EditPrompt(ctx, catalog.Lookup(lang, "askGender", nil), genderKeyboard(lang))
	case "sexual":
		return fx.EditPrompt(ctx, catalog.Lookup(lang, "askPreference", nil), preferenceKeyboard(lang))
	case "language":
		return fx.EditPrompt(ctx, catalog.Lookup(lang, "language", nil), languageKeyboard())
	case "style":
		// Style learning itself is switched off; the entry only explains how
		// to submit conversation screenshots.
		return fx.EditPrompt(ctx, catalog.Lookup(lang, "styleInstructions", nil), nil)
	default:
		m.log.WarnContext(ctx, "Unknown settings field", "field", field)
		return nil
	}
}

func (m *Manager) handleSetValue(ctx context.Context, userKey, field, value string, fx Effects) error {
	profile, err := m.store.GetUserProfile(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = &database.UserProfile{UserKey: userKey, Language: "en"}
	}

	var fieldKey string
	switch field {
	case "language":
		profile.Language = value
		fieldKey = "language"
	case "gender":
		profile.Gender = value
		fieldKey = "gender"
	case "preference":
		profile.SexualPreference = value
		fieldKey = "sexualPreference"
	default:
		m.log.WarnContext(ctx, "Unknown settings value field", "field", field)
		return nil
	}

	if err := m.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := m.recordConfigUpdate(ctx, userKey, fieldKey, value); err != nil {
		return err
	}

	state, err := m.store.GetUserState(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	inWizard := state != nil && state.ConfigStep != ""

	lang := profile.Language

	if inWizard {
		switch field {
		case "language":
			if err := m.store.SetConfigStep(ctx, userKey, StepName); err != nil {
				return fmt.Errorf("failed to advance wizard: %w", err)
			}
			return fx.EditPrompt(ctx, catalog.Lookup(lang, "askName", nil), nil)
		case "gender":
			if err := m.store.SetConfigStep(ctx, userKey, StepPreference); err != nil {
				return fmt.Errorf("failed to advance wizard: %w", err)
			}
			return fx.EditPrompt(ctx, catalog.Lookup(lang, "askPreference", nil), preferenceKeyboard(lang))
		case "preference":
			if err := m.store.SetConfigStep(ctx, userKey, ""); err != nil {
				return fmt.Errorf("failed to finish wizard: %w", err)
			}
			return fx.EditPrompt(ctx, m.settingsSummary(lang, profile), nil)
		}
	}

	var confirmation string
	switch field {
	case "gender":
		confirmation = catalog.Lookup(lang, "genderUpdated", map[string]string{
			"gender": catalog.Lookup(lang, value, nil),
		})
	case "preference":
		confirmation = catalog.Lookup(lang, "preferenceUpdated", map[string]string{
			"preference": catalog.Lookup(lang, value, nil),
		})
	default:
		confirmation = catalog.Lookup(lang, "configType", map[string]string{
			"config_type": catalog.Lookup(lang, fieldKey, nil),
			"value":       value,
		})
	}
	return fx.EditPrompt(ctx, confirmation, nil)
}

func (m *Manager) wizardName(ctx context.Context, userKey, text string, fx Effects) error {
	profile, lang, err := m.profileForUpdate(ctx, userKey)
	if err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(text)
	if err := m.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := m.recordConfigUpdate(ctx, userKey, "name", profile.Name); err != nil {
		return err
	}
	if err := m.store.SetConfigStep(ctx, userKey, StepBirthdate); err != nil {
		return fmt.Errorf("failed to advance wizard: %w", err)
	}
	prompt := catalog.Lookup(lang, "askBirthdate", map[string]string{"format": BirthdateFormat})
	return fx.Reply(ctx, prompt, nil)
}

func (m *Manager) wizardBirthdate(ctx context.Context, userKey, text string, fx Effects) error {
	profile, lang, err := m.profileForUpdate(ctx, userKey)
	if err != nil {
		return err
	}

	birthdate, ok := parseBirthdate(text)
	if !ok {
		// Invalid input re-prompts without changing the step.
		msg := catalog.Lookup(lang, "invalidBirthdate", map[string]string{"format": BirthdateFormat})
		return fx.Reply(ctx, msg, nil)
	}

	profile.Birthdate = birthdate
	if err := m.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := m.recordConfigUpdate(ctx, userKey, "birthdate", strings.TrimSpace(text)); err != nil {
		return err
	}
	if err := m.store.SetConfigStep(ctx, userKey, StepGender); err != nil {
		return fmt.Errorf("failed to advance wizard: %w", err)
	}
	return fx.Reply(ctx, catalog.Lookup(lang, "askGender", nil), genderKeyboard(lang))
}

func (m *Manager) awaitedName(ctx context.Context, userKey, text string, fx Effects) error {
	profile, lang, err := m.profileForUpdate(ctx, userKey)
	if err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(text)
	if err := m.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := m.store.ClearAwaitingInput(ctx, userKey); err != nil {
		return fmt.Errorf("failed to clear awaiting input: %w", err)
	}
	if err := m.recordConfigUpdate(ctx, userKey, "name", profile.Name); err != nil {
		return err
	}
	confirmation := catalog.Lookup(lang, "configType", map[string]string{
		"config_type": catalog.Lookup(lang, "name", nil),
		"value":       profile.Name,
	})
	return fx.Reply(ctx, confirmation, nil)
}

func (m *Manager) awaitedBirthdate(ctx context.Context, userKey, text string, fx Effects) error {
	profile, lang, err := m.profileForUpdate(ctx, userKey)
	if err != nil {
		return err
	}

	birthdate, ok := parseBirthdate(text)
	if !ok {
		// Stay in the awaiting state so the user can retry.
		msg := catalog.Lookup(lang, "invalidBirthdate", map[string]string{"format": BirthdateFormat})
		return fx.Reply(ctx, msg, nil)
	}

	profile.Birthdate = birthdate
	if err := m.store.SaveUserProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if err := m.store.ClearAwaitingInput(ctx, userKey); err != nil {
		return fmt.Errorf("failed to clear awaiting input: %w", err)
	}
	if err := m.recordConfigUpdate(ctx, userKey, "birthdate", strings.TrimSpace(text)); err != nil {
		return err
	}
	confirmation := catalog.Lookup(lang, "configType", map[string]string{
		"config_type": catalog.Lookup(lang, "birthdate", nil),
		"value":       strings.TrimSpace(text),
	})
	return fx.Reply(ctx, confirmation, nil)
}

// recordConfigUpdate appends a synthetic system turn so the model sees
// profile changes as part of the conversation.
func (m *Manager) recordConfigUpdate(ctx context.Context, userKey, field, value string) error {
	msg := &database.ConversationMessage{
		UserKey:   userKey,
		Role:      database.RoleSystem,
		Content:   fmt.Sprintf("[CONFIG UPDATE] The user changed their %s to: %s", field, value),
		Timestamp: time.Now().UTC(),
	}
	if err := m.store.AppendConversationMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to record config update: %w", err)
	}
	return nil
}

func (m *Manager) profileForUpdate(ctx context.Context, userKey string) (*database.UserProfile, string, error) {
	profile, err := m.store.GetUserProfile(ctx, userKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		profile = &database.UserProfile{UserKey: userKey, Language: "en"}
	}
	return profile, profile.Language, nil
}

func (m *Manager) language(ctx context.Context, userKey string) (string, error) {
	profile, err := m.store.GetUserProfile(ctx, userKey)
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil || profile.Language == "" {
		return "en", nil
	}
	return profile.Language, nil
}

func (m *Manager) settingsSummary(lang string, profile *database.UserProfile) string {
	age := "-"
	if profile.Birthdate.Valid {
		age = fmt.Sprintf("%d", calculateAge(profile.Birthdate.Time, time.Now()))
	}
	return catalog.Lookup(lang, "settingsSummary", map[string]string{
		"name":       profile.Name,
		"gender":     catalog.Lookup(lang, profile.Gender, nil),
		"preference": catalog.Lookup(lang, profile.SexualPreference, nil),
		"language":   lang,
		"age":        age,
	})
}

func languageKeyboard() Keyboard {
	return Keyboard{
		{{Text: "English", Data: "set_language_en"}},
		{{Text: "Français", Data: "set_language_fr"}},
	}
}

func genderKeyboard(lang string) Keyboard {
	return Keyboard{
		{{Text: catalog.Lookup(lang, "male", nil), Data: "set_gender_male"}},
		{{Text: catalog.Lookup(lang, "female", nil), Data: "set_gender_female"}},
	}
}

func preferenceKeyboard(lang string) Keyboard {
	return Keyboard{
		{{Text: catalog.Lookup(lang, "heterosexual", nil), Data: "set_preference_heterosexual"}},
		{{Text: catalog.Lookup(lang, "homosexual", nil), Data: "set_preference_homosexual"}},
		{{Text: catalog.Lookup(lang, "bisexual", nil), Data: "set_preference_bisexual"}},
	}
}

// parseBirthdate validates DD/MM/YYYY input and converts it to a nullable
// timestamp. The regex is the validation contract; a shape-valid entry like
// 31/02/2000 is accepted and normalized by time.Date rather than rejected.
func parseBirthdate(text string) (sql.NullTime, bool) {
	trimmed := strings.TrimSpace(text)
	if !birthdateRe.MatchString(trimmed) {
		return sql.NullTime{}, false
	}

	day, _ := strconv.Atoi(trimmed[0:2])
	month, _ := strconv.Atoi(trimmed[3:5])
	year, _ := strconv.Atoi(trimmed[6:])

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return sql.NullTime{Time: t, Valid: true}, true
}

func calculateAge(birthdate, now time.Time) int {
	age := now.Year() - birthdate.Year()
	anniversary := time.Date(now.Year(), birthdate.Month(), birthdate.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		age--
	}
	return age
}
