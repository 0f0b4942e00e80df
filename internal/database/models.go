package database

import (
	"database/sql"
	"time"
)

// Conversation roles stored in conversation_messages. System entries record
// configuration changes so the model sees them; they are never shown to the user.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// UserProfile holds a user's configuration collected through the onboarding
// wizard and the settings menu. UserKey is the platform user ID, suffixed
// with "-dev" when the bot runs against a sandbox identity.
type UserProfile struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	UserKey          string       `db:"user_key"`
	Name             string       `db:"name"`
	Gender           string       `db:"gender"`
	SexualPreference string       `db:"sexual_preference"`
	Language         string       `db:"language"`
	Birthdate        sql.NullTime `db:"birthdate"`
}

// UserState holds transient per-user dialogue state: the active onboarding
// wizard step and the awaiting-input marker set by the settings menu.
// Both are empty strings when inactive.
type UserState struct {
	UserKey       string    `db:"user_key"`
	ConfigStep    string    `db:"config_step"`
	AwaitingInput string    `db:"awaiting_input"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ConversationMessage is one turn of a user's conversation with the bot,
// fed to the model on every invocation.
type ConversationMessage struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	UserKey   string    `db:"user_key"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
}
