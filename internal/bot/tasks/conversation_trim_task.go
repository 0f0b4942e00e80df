package tasks

import (
	"context"
	"fmt"
	"time"
)

// newConversationTrimTask creates the scheduled task that caps every user's
// stored conversation at the configured history window. Trimming keeps the
// database bounded without touching what the model actually sees, since reads
// already apply the same limit.
func newConversationTrimTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "conversation_trim")

	return func(ctx context.Context) error {
		keep := deps.Config.Database.MaxHistoryMessages
		if keep <= 0 {
			keep = 100
		}

		log.InfoContext(ctx, "Starting scheduled conversation trim task...", "keep", keep)
		startTime := time.Now()

		err := deps.Store.TrimConversations(ctx, keep)
		duration := time.Since(startTime)

		if err != nil {
			log.ErrorContext(ctx, "Conversation trim task failed", "error", err, "duration", duration)
			return fmt.Errorf("conversation trim failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled conversation trim task completed successfully", "duration", duration)
		return nil
	}
}
