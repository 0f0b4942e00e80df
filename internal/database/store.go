package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetUserProfile retrieves a profile by user key. Returns nil, nil if not found.
	GetUserProfile(ctx context.Context, userKey string) (*UserProfile, error)

	// SaveUserProfile inserts or updates a user profile keyed by UserKey.
	SaveUserProfile(ctx context.Context, profile *UserProfile) error

	// GetUserState retrieves the transient dialogue state for a user.
	// Returns nil, nil if the user has no state row.
	GetUserState(ctx context.Context, userKey string) (*UserState, error)

	// SetConfigStep sets the onboarding wizard step. An empty step clears it.
	SetConfigStep(ctx context.Context, userKey, step string) error

	// SetAwaitingInput marks the next free-text message as the answer to a
	// settings-menu prompt.
	SetAwaitingInput(ctx context.Context, userKey, inputKind string) error

	// ClearAwaitingInput removes the awaiting-input marker.
	ClearAwaitingInput(ctx context.Context, userKey string) error

	// AppendConversationMessage appends one turn to a user's conversation log.
	AppendConversationMessage(ctx context.Context, msg *ConversationMessage) error

	// GetConversationHistory retrieves the most recent 'limit' turns for a user,
	// ordered oldest first.
	GetConversationHistory(ctx context.Context, userKey string, limit int) ([]*ConversationMessage, error)

	// DeleteConversation removes a user's entire conversation log.
	DeleteConversation(ctx context.Context, userKey string) error

	// TrimConversations keeps only the newest 'keep' turns per user.
	TrimConversations(ctx context.Context, keep int) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUserProfile retrieves a profile by user key. Returns nil, nil if not found.
func (s *sqlxStore) GetUserProfile(ctx context.Context, userKey string) (*UserProfile, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var profile UserProfile
	query := `SELECT id, created_at, updated_at, user_key, name, gender, sexual_preference, language, birthdate
	          FROM user_profiles WHERE user_key = ?`

	err := s.db.GetContext(ctx, &profile, query, userKey)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user profile found", "user_key", userKey)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user profile",
			"user_key", userKey, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user profile", "user_key", userKey, "error", err)
		return nil, fmt.Errorf("failed to get user profile for %s: %w", userKey, err)
	}

	return &profile, nil
}

// SaveUserProfile inserts or updates a user profile keyed by UserKey.
func (s *sqlxStore) SaveUserProfile(ctx context.Context, profile *UserProfile) error {
	if profile == nil {
		return fmt.Errorf("cannot save nil user profile")
	}
	if profile.UserKey == "" {
		return fmt.Errorf("profile must have a non-empty user_key")
	}

	now := time.Now().UTC()
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	query := `
        INSERT INTO user_profiles (created_at, updated_at, user_key, name, gender, sexual_preference, language, birthdate)
        VALUES (:created_at, :updated_at, :user_key, :name, :gender, :sexual_preference, :language, :birthdate)
        ON CONFLICT(user_key) DO UPDATE SET
            updated_at = excluded.updated_at,
            name = excluded.name,
            gender = excluded.gender,
            sexual_preference = excluded.sexual_preference,
            language = excluded.language,
            birthdate = excluded.birthdate;
    `

	if _, err := s.db.NamedExecContext(ctx, query, profile); err != nil {
		s.logger.ErrorContext(ctx, "Error saving user profile", "user_key", profile.UserKey, "error", err)
		return fmt.Errorf("failed to save user profile for %s: %w", profile.UserKey, err)
	}

	s.logger.DebugContext(ctx, "User profile saved", "user_key", profile.UserKey)
	return nil
}

// GetUserState retrieves the transient dialogue state for a user.
func (s *sqlxStore) GetUserState(ctx context.Context, userKey string) (*UserState, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var state UserState
	query := `SELECT user_key, config_step, awaiting_input, updated_at FROM user_states WHERE user_key = ?`

	err := s.db.GetContext(ctx, &state, query, userKey)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user state", "user_key", userKey, "error", err)
		return nil, fmt.Errorf("failed to get user state for %s: %w", userKey, err)
	}

	return &state, nil
}

// SetConfigStep sets the onboarding wizard step. An empty step clears it.
func (s *sqlxStore) SetConfigStep(ctx context.Context, userKey, step string) error {
	if userKey == "" {
		return fmt.Errorf("user_key cannot be empty")
	}

	query := `
        INSERT INTO user_states (user_key, config_step, awaiting_input, updated_at)
        VALUES (?, ?, '', ?)
        ON CONFLICT(user_key) DO UPDATE SET
            config_step = excluded.config_step,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, userKey, step, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error setting config step", "user_key", userKey, "step", step, "error", err)
		return fmt.Errorf("failed to set config step for %s: %w", userKey, err)
	}

	s.logger.DebugContext(ctx, "Config step updated", "user_key", userKey, "step", step)
	return nil
}

// SetAwaitingInput marks the next free-text message as a settings-menu answer.
func (s *sqlxStore) SetAwaitingInput(ctx context.Context, userKey, inputKind string) error {
	if userKey == "" {
		return fmt.Errorf("user_key cannot be empty")
	}

	query := `
        INSERT INTO user_states (user_key, config_step, awaiting_input, updated_at)
        VALUES (?, '', ?, ?)
        ON CONFLICT(user_key) DO UPDATE SET
            awaiting_input = excluded.awaiting_input,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, userKey, inputKind, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error setting awaiting input", "user_key", userKey, "kind", inputKind, "error", err)
		return fmt.Errorf("failed to set awaiting input for %s: %w", userKey, err)
	}

	return nil
}

// ClearAwaitingInput removes the awaiting-input marker.
func (s *sqlxStore) ClearAwaitingInput(ctx context.Context, userKey string) error {
	return s.SetAwaitingInput(ctx, userKey, "")
}

// AppendConversationMessage appends one turn to a user's conversation log.
func (s *sqlxStore) AppendConversationMessage(ctx context.Context, msg *ConversationMessage) error {
	if msg == nil {
		return fmt.Errorf("cannot save nil conversation message")
	}
	if msg.UserKey == "" {
		return fmt.Errorf("conversation message must have a non-empty user_key")
	}
	if msg.Role != RoleUser && msg.Role != RoleAssistant && msg.Role != RoleSystem {
		return fmt.Errorf("invalid conversation role %q", msg.Role)
	}
	if msg.Content == "" {
		return fmt.Errorf("conversation message must have non-empty content")
	}

	now := time.Now().UTC()
	msg.CreatedAt = now
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}

	query := `
        INSERT INTO conversation_messages (created_at, user_key, role, content, timestamp)
        VALUES (:created_at, :user_key, :role, :content, :timestamp);
    `

	result, err := s.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error appending conversation message", "user_key", msg.UserKey, "role", msg.Role, "error", err)
		return fmt.Errorf("failed to append conversation message for %s: %w", msg.UserKey, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		msg.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Conversation message appended", "user_key", msg.UserKey, "role", msg.Role, "message_id", msg.ID)
	return nil
}

// GetConversationHistory retrieves the most recent 'limit' turns for a user,
// ordered oldest first.
func (s *sqlxStore) GetConversationHistory(ctx context.Context, userKey string, limit int) ([]*ConversationMessage, error) {
	if userKey == "" {
		return nil, fmt.Errorf("user_key cannot be empty")
	}
	if limit <= 0 {
		limit = 50
	} else if limit > 500 {
		limit = 500
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []*ConversationMessage
	query := `
        SELECT id, created_at, user_key, role, content, timestamp
        FROM (
            SELECT id, created_at, user_key, role, content, timestamp
            FROM conversation_messages
            WHERE user_key = ?
            ORDER BY timestamp DESC, id DESC
            LIMIT ?
        )
        ORDER BY timestamp ASC, id ASC;
    `

	err := s.db.SelectContext(ctx, &messages, query, userKey, limit)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching conversation history",
			"user_key", userKey, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting conversation history", "user_key", userKey, "error", err)
		return nil, fmt.Errorf("failed to get conversation history for %s: %w", userKey, err)
	}

	s.logger.DebugContext(ctx, "Fetched conversation history", "user_key", userKey, "count", len(messages))
	return messages, nil
}

// DeleteConversation removes a user's entire conversation log.
func (s *sqlxStore) DeleteConversation(ctx context.Context, userKey string) error {
	if userKey == "" {
		return fmt.Errorf("user_key cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_messages WHERE user_key = ?`, userKey); err != nil {
		s.logger.ErrorContext(ctx, "Error deleting conversation", "user_key", userKey, "error", err)
		return fmt.Errorf("failed to delete conversation for %s: %w", userKey, err)
	}

	s.logger.InfoContext(ctx, "Conversation deleted", "user_key", userKey)
	return nil
}

// TrimConversations keeps only the newest 'keep' turns per user.
func (s *sqlxStore) TrimConversations(ctx context.Context, keep int) error {
	if keep <= 0 {
		return fmt.Errorf("keep must be positive, got %d", keep)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	query := `
        DELETE FROM conversation_messages
        WHERE id NOT IN (
            SELECT id FROM (
                SELECT id, ROW_NUMBER() OVER (
                    PARTITION BY user_key ORDER BY timestamp DESC, id DESC
                ) AS rn
                FROM conversation_messages
            ) WHERE rn <= ?
        );
    `

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error trimming conversations", "keep", keep, "error", err)
		return fmt.Errorf("failed to trim conversations: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.logger.InfoContext(ctx, "Trimmed conversation history", "deleted_rows", affected, "keep_per_user", keep)
	}

	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
