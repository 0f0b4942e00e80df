package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rizzard-app/rizzard/internal/database"
)

type fakeStore struct {
	profiles map[string]*database.UserProfile
	states   map[string]*database.UserState
	messages []*database.ConversationMessage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[string]*database.UserProfile),
		states:   make(map[string]*database.UserState),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetUserProfile(_ context.Context, userKey string) (*database.UserProfile, error) {
	p, ok := f.profiles[userKey]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SaveUserProfile(_ context.Context, profile *database.UserProfile) error {
	cp := *profile
	f.profiles[profile.UserKey] = &cp
	return nil
}

func (f *fakeStore) GetUserState(_ context.Context, userKey string) (*database.UserState, error) {
	s, ok := f.states[userKey]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) SetConfigStep(_ context.Context, userKey, step string) error {
	s, ok := f.states[userKey]
	if !ok {
		s = &database.UserState{UserKey: userKey}
		f.states[userKey] = s
	}
	s.ConfigStep = step
	return nil
}

func (f *fakeStore) SetAwaitingInput(_ context.Context, userKey, inputKind string) error {
	s, ok := f.states[userKey]
	if !ok {
		s = &database.UserState{UserKey: userKey}
		f.states[userKey] = s
	}
	s.AwaitingInput = inputKind
	return nil
}

func (f *fakeStore) ClearAwaitingInput(_ context.Context, userKey string) error {
	if s, ok := f.states[userKey]; ok {
		s.AwaitingInput = ""
	}
	return nil
}

func (f *fakeStore) AppendConversationMessage(_ context.Context, msg *database.ConversationMessage) error {
	cp := *msg
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeStore) GetConversationHistory(_ context.Context, userKey string, limit int) ([]*database.ConversationMessage, error) {
	var out []*database.ConversationMessage
	for _, m := range f.messages {
		if m.UserKey == userKey {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeStore) DeleteConversation(_ context.Context, userKey string) error {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.UserKey != userKey {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeStore) TrimConversations(context.Context, int) error { return nil }
func (f *fakeStore) RunSQLMaintenance(context.Context) error      { return nil }

type sentMessage struct {
	text     string
	keyboard Keyboard
	edited   bool
}

type fakeEffects struct {
	sent []sentMessage
}

func (f *fakeEffects) Reply(_ context.Context, text string, keyboard Keyboard) error {
	f.sent = append(f.sent, sentMessage{text: text, keyboard: keyboard})
	return nil
}

func (f *fakeEffects) EditPrompt(_ context.Context, text string, keyboard Keyboard) error {
	f.sent = append(f.sent, sentMessage{text: text, keyboard: keyboard, edited: true})
	return nil
}

func (f *fakeEffects) last(t *testing.T) sentMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func testManager() (*Manager, *fakeStore) {
	store := newFakeStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(store, log), store
}

func TestHandleStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("New User Starts Wizard", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		fx := &fakeEffects{}

		if err := m.HandleStart(ctx, "101", "Alice", fx); err != nil {
			t.Fatalf("HandleStart() error = %v", err)
		}

		if store.profiles["101"] == nil {
			t.Fatal("profile was not created")
		}
		if got := store.profiles["101"].Name; got != "Alice" {
			t.Errorf("profile name = %q, want %q", got, "Alice")
		}
		if got := store.states["101"].ConfigStep; got != StepLanguage {
			t.Errorf("config step = %q, want %q", got, StepLanguage)
		}

		last := fx.last(t)
		if !strings.Contains(last.text, "preferred language") {
			t.Errorf("prompt = %q, want language selection", last.text)
		}
		if len(last.keyboard) != 2 {
			t.Errorf("keyboard rows = %d, want 2", len(last.keyboard))
		}
	})

	t.Run("Configured User Gets Welcome Back", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["101"] = &database.UserProfile{UserKey: "101", Name: "Alice", Language: "en"}
		fx := &fakeEffects{}

		if err := m.HandleStart(ctx, "101", "Alice", fx); err != nil {
			t.Fatalf("HandleStart() error = %v", err)
		}

		last := fx.last(t)
		if !strings.Contains(last.text, "Alice") || !strings.Contains(last.text, "/settings") {
			t.Errorf("reply = %q, want welcome-back message", last.text)
		}
		if last.keyboard != nil {
			t.Error("welcome-back should have no keyboard")
		}
	})

	t.Run("Interrupted Wizard Restarts", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["101"] = &database.UserProfile{UserKey: "101", Name: "Alice", Language: "en"}
		store.states["101"] = &database.UserState{UserKey: "101", ConfigStep: StepGender}
		fx := &fakeEffects{}

		if err := m.HandleStart(ctx, "101", "Alice", fx); err != nil {
			t.Fatalf("HandleStart() error = %v", err)
		}

		if got := store.states["101"].ConfigStep; got != StepLanguage {
			t.Errorf("config step = %q, want %q", got, StepLanguage)
		}
	})
}

func TestWizardProgression(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, store := testManager()
	fx := &fakeEffects{}

	if err := m.HandleStart(ctx, "202", "Bob", fx); err != nil {
		t.Fatalf("HandleStart() error = %v", err)
	}

	if err := m.HandleCallback(ctx, "202", "set_language_fr", fx); err != nil {
		t.Fatalf("language callback error = %v", err)
	}
	if got := store.profiles["202"].Language; got != "fr" {
		t.Errorf("language = %q, want fr", got)
	}
	if got := store.states["202"].ConfigStep; got != StepName {
		t.Errorf("step after language = %q, want %q", got, StepName)
	}

	handled, err := m.HandleText(ctx, "202", "Bobby", fx)
	if err != nil || !handled {
		t.Fatalf("name input handled = %v, err = %v", handled, err)
	}
	if got := store.profiles["202"].Name; got != "Bobby" {
		t.Errorf("name = %q, want Bobby", got)
	}
	if got := store.states["202"].ConfigStep; got != StepBirthdate {
		t.Errorf("step after name = %q, want %q", got, StepBirthdate)
	}

	handled, err = m.HandleText(ctx, "202", "15/06/1995", fx)
	if err != nil || !handled {
		t.Fatalf("birthdate input handled = %v, err = %v", handled, err)
	}
	if !store.profiles["202"].Birthdate.Valid {
		t.Error("birthdate was not stored")
	}
	if got := store.states["202"].ConfigStep; got != StepGender {
		t.Errorf("step after birthdate = %q, want %q", got, StepGender)
	}

	if err := m.HandleCallback(ctx, "202", "set_gender_male", fx); err != nil {
		t.Fatalf("gender callback error = %v", err)
	}
	if got := store.states["202"].ConfigStep; got != StepPreference {
		t.Errorf("step after gender = %q, want %q", got, StepPreference)
	}

	if err := m.HandleCallback(ctx, "202", "set_preference_heterosexual", fx); err != nil {
		t.Fatalf("preference callback error = %v", err)
	}
	if got := store.states["202"].ConfigStep; got != "" {
		t.Errorf("step after preference = %q, want cleared", got)
	}

	last := fx.last(t)
	if !strings.Contains(last.text, "Bobby") || !strings.Contains(last.text, "/settings") {
		t.Errorf("summary = %q, want settings summary", last.text)
	}
}

func TestWizardBirthdateValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := map[string]struct {
		input string
		valid bool
	}{
		"Valid Date":           {input: "01/12/1990", valid: true},
		"Out Of Range Day":     {input: "32/01/1990", valid: false},
		"Out Of Range Month":   {input: "15/13/1990", valid: false},
		"Wrong Separator":      {input: "15-06-1990", valid: false},
		"ISO Format":           {input: "1990-02-31", valid: false},
		"Missing Leading Zero": {input: "5/06/1990", valid: false},
		"Shape Valid Day":      {input: "31/02/1990", valid: true},
		"Free Text":            {input: "June 15th 1990", valid: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, store := testManager()
			store.profiles["303"] = &database.UserProfile{UserKey: "303", Name: "Cara", Language: "en"}
			store.states["303"] = &database.UserState{UserKey: "303", ConfigStep: StepBirthdate}
			fx := &fakeEffects{}

			handled, err := m.HandleText(ctx, "303", tc.input, fx)
			if err != nil {
				t.Fatalf("HandleText() error = %v", err)
			}
			if !handled {
				t.Fatal("birthdate step should always claim text input")
			}

			if tc.valid {
				if got := store.states["303"].ConfigStep; got != StepGender {
					t.Errorf("step = %q, want %q", got, StepGender)
				}
				if !store.profiles["303"].Birthdate.Valid {
					t.Error("birthdate was not stored")
				}
			} else {
				if got := store.states["303"].ConfigStep; got != StepBirthdate {
					t.Errorf("invalid input moved step to %q, want unchanged", got)
				}
				if store.profiles["303"].Birthdate.Valid {
					t.Error("invalid birthdate was stored")
				}
				if !strings.Contains(fx.last(t).text, BirthdateFormat) {
					t.Errorf("reply = %q, want format re-prompt", fx.last(t).text)
				}
			}
		})
	}
}

func TestHandleText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("No State Is Unhandled", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["404"] = &database.UserProfile{UserKey: "404", Name: "Dan", Language: "en"}
		fx := &fakeEffects{}

		handled, err := m.HandleText(ctx, "404", "what do I say to her?", fx)
		if err != nil {
			t.Fatalf("HandleText() error = %v", err)
		}
		if handled {
			t.Error("free text should not be claimed by the state machine")
		}
		if len(fx.sent) != 0 {
			t.Error("unhandled text should produce no reply")
		}
	})

	t.Run("Wizard Takes Precedence Over Awaiting Input", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["404"] = &database.UserProfile{UserKey: "404", Name: "Dan", Language: "en"}
		store.states["404"] = &database.UserState{
			UserKey:       "404",
			ConfigStep:    StepName,
			AwaitingInput: AwaitBirthdate,
		}
		fx := &fakeEffects{}

		handled, err := m.HandleText(ctx, "404", "Daniel", fx)
		if err != nil || !handled {
			t.Fatalf("handled = %v, err = %v", handled, err)
		}

		if got := store.profiles["404"].Name; got != "Daniel" {
			t.Errorf("name = %q, want Daniel", got)
		}
		if store.profiles["404"].Birthdate.Valid {
			t.Error("text was consumed as birthdate despite active wizard step")
		}
		if got := store.states["404"].AwaitingInput; got != AwaitBirthdate {
			t.Errorf("awaiting input = %q, want untouched", got)
		}
	})

	t.Run("Keyboard Step Swallows Stray Text", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["404"] = &database.UserProfile{UserKey: "404", Name: "Dan", Language: "en"}
		store.states["404"] = &database.UserState{UserKey: "404", ConfigStep: StepGender}
		fx := &fakeEffects{}

		handled, err := m.HandleText(ctx, "404", "male", fx)
		if err != nil || !handled {
			t.Fatalf("handled = %v, err = %v", handled, err)
		}
		if got := store.profiles["404"].Gender; got != "" {
			t.Errorf("gender = %q, want empty (keyboard only)", got)
		}
	})

	t.Run("Awaited Name Consumes Once", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["404"] = &database.UserProfile{UserKey: "404", Name: "Dan", Language: "en"}
		store.states["404"] = &database.UserState{UserKey: "404", AwaitingInput: AwaitName}
		fx := &fakeEffects{}

		handled, err := m.HandleText(ctx, "404", "Danny", fx)
		if err != nil || !handled {
			t.Fatalf("handled = %v, err = %v", handled, err)
		}
		if got := store.profiles["404"].Name; got != "Danny" {
			t.Errorf("name = %q, want Danny", got)
		}
		if got := store.states["404"].AwaitingInput; got != "" {
			t.Errorf("awaiting input = %q, want cleared", got)
		}

		handled, err = m.HandleText(ctx, "404", "another message", fx)
		if err != nil {
			t.Fatalf("HandleText() error = %v", err)
		}
		if handled {
			t.Error("second message should fall through to free text")
		}
	})

	t.Run("Awaited Birthdate Retries On Invalid Input", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["404"] = &database.UserProfile{UserKey: "404", Name: "Dan", Language: "en"}
		store.states["404"] = &database.UserState{UserKey: "404", AwaitingInput: AwaitBirthdate}
		fx := &fakeEffects{}

		handled, err := m.HandleText(ctx, "404", "not a date", fx)
		if err != nil || !handled {
			t.Fatalf("handled = %v, err = %v", handled, err)
		}
		if got := store.states["404"].AwaitingInput; got != AwaitBirthdate {
			t.Errorf("awaiting input = %q, want retained for retry", got)
		}

		handled, err = m.HandleText(ctx, "404", "20/02/1992", fx)
		if err != nil || !handled {
			t.Fatalf("handled = %v, err = %v", handled, err)
		}
		if got := store.states["404"].AwaitingInput; got != "" {
			t.Errorf("awaiting input = %q, want cleared", got)
		}
		if !store.profiles["404"].Birthdate.Valid {
			t.Error("birthdate was not stored")
		}
	})
}

func TestSettingsFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Menu Lists Editable Fields", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["505"] = &database.UserProfile{UserKey: "505", Name: "Eve", Language: "fr"}
		fx := &fakeEffects{}

		if err := m.HandleSettings(ctx, "505", fx); err != nil {
			t.Fatalf("HandleSettings() error = %v", err)
		}

		last := fx.last(t)
		if len(last.keyboard) != 6 {
			t.Fatalf("keyboard rows = %d, want 6", len(last.keyboard))
		}
		if got := last.keyboard[0][0].Data; got != "config_name" {
			t.Errorf("first row data = %q, want config_name", got)
		}
		if got := last.keyboard[5][0].Data; got != "config_style" {
			t.Errorf("last row data = %q, want config_style", got)
		}
		if got := last.text; got != "Que souhaites-tu modifier ?" {
			t.Errorf("prompt = %q, want localized settings prompt", got)
		}
	})

	t.Run("Style Entry Shows Instructions Only", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["505"] = &database.UserProfile{UserKey: "505", Name: "Eve", Language: "en"}
		fx := &fakeEffects{}

		if err := m.HandleCallback(ctx, "505", "config_style", fx); err != nil {
			t.Fatalf("HandleCallback() error = %v", err)
		}

		last := fx.last(t)
		if !last.edited {
			t.Error("instructions should edit the settings message")
		}
		if !strings.Contains(last.text, "screenshots") {
			t.Errorf("reply = %q, want style instructions", last.text)
		}
		if last.keyboard != nil {
			t.Error("instructions should carry no keyboard")
		}
		if state := store.states["505"]; state != nil && state.AwaitingInput != "" {
			t.Errorf("awaiting input = %q, want none", state.AwaitingInput)
		}
	})

	t.Run("Name Edit Sets Awaiting Input", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["505"] = &database.UserProfile{UserKey: "505", Name: "Eve", Language: "en"}
		fx := &fakeEffects{}

		if err := m.HandleCallback(ctx, "505", "config_name", fx); err != nil {
			t.Fatalf("HandleCallback() error = %v", err)
		}
		if got := store.states["505"].AwaitingInput; got != AwaitName {
			t.Errorf("awaiting input = %q, want %q", got, AwaitName)
		}
		if !fx.last(t).edited {
			t.Error("prompt should edit the settings message")
		}
	})

	t.Run("Direct Value Outside Wizard Confirms", func(t *testing.T) {
		t.Parallel()

		m, store := testManager()
		store.profiles["505"] = &database.UserProfile{UserKey: "505", Name: "Eve", Language: "en"}
		fx := &fakeEffects{}

		if err := m.HandleCallback(ctx, "505", "set_gender_female", fx); err != nil {
			t.Fatalf("HandleCallback() error = %v", err)
		}
		if got := store.profiles["505"].Gender; got != "female" {
			t.Errorf("gender = %q, want female", got)
		}
		if got := store.profiles["505"].Name; got != "Eve" {
			t.Errorf("name = %q, want preserved by merge", got)
		}
		if !strings.Contains(fx.last(t).text, "Female") {
			t.Errorf("confirmation = %q, want gender confirmation", fx.last(t).text)
		}
	})

	t.Run("Unknown Callback Is Ignored", func(t *testing.T) {
		t.Parallel()

		m, _ := testManager()
		fx := &fakeEffects{}

		if err := m.HandleCallback(ctx, "505", "bogus_data", fx); err != nil {
			t.Fatalf("HandleCallback() error = %v", err)
		}
		if len(fx.sent) != 0 {
			t.Error("unknown callback should produce no output")
		}
	})
}

func TestConfigUpdateSystemTurn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, store := testManager()
	store.profiles["606"] = &database.UserProfile{UserKey: "606", Name: "Fay", Language: "en"}
	fx := &fakeEffects{}

	if err := m.HandleCallback(ctx, "606", "set_language_fr", fx); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if len(store.messages) != 1 {
		t.Fatalf("conversation messages = %d, want 1", len(store.messages))
	}
	msg := store.messages[0]
	if msg.Role != database.RoleSystem {
		t.Errorf("role = %q, want %q", msg.Role, database.RoleSystem)
	}
	if !strings.HasPrefix(msg.Content, "[CONFIG UPDATE]") {
		t.Errorf("content = %q, want [CONFIG UPDATE] prefix", msg.Content)
	}
	if !strings.Contains(msg.Content, "fr") {
		t.Errorf("content = %q, want new value recorded", msg.Content)
	}
}

func TestCalculateAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := map[string]struct {
		birthdate time.Time
		want      int
	}{
		"Birthday Passed":   {birthdate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), want: 34},
		"Birthday Today":    {birthdate: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), want: 34},
		"Birthday Upcoming": {birthdate: time.Date(1990, 12, 31, 0, 0, 0, 0, time.UTC), want: 33},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := calculateAge(tc.birthdate, now); got != tc.want {
				t.Errorf("calculateAge() = %d, want %d", got, tc.want)
			}
		})
	}
}
