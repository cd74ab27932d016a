package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge sweeps expired session audit rows from Postgres.
	TaskSessionPurge = "sessions:purge"
)

// SessionPurger deletes audit rows whose expiry passed before the cutoff.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// SessionPurgePayload parameterizes a purge run. A zero Grace keeps rows
// until the moment they expire.
type SessionPurgePayload struct {
	Grace time.Duration `json:"grace"`
}

// NewSessionPurgeTask constructs an Asynq task.
func NewSessionPurgeTask(payload SessionPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPurge, data), nil
}

// NewSessionPurgeHandler binds the purge task to its repository.
func NewSessionPurgeHandler(purger SessionPurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SessionPurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		cutoff := time.Now().Add(-payload.Grace)
		removed, err := purger.DeleteExpiredSessions(ctx, cutoff)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("purged expired sessions", slog.Int64("removed", removed))
		}
		return nil
	}
}
