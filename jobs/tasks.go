package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/staffdesk/staffdesk/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPrune is the task type for pruning aged audit log entries.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload carries the retention window for a prune run.
type AuditPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewAuditPruneTask constructs an Asynq task.
func NewAuditPruneTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// AuditPruner deletes audit entries older than a cutoff. The shared audit
// logger satisfies it.
type AuditPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

var _ AuditPruner = (*shared.AuditLogger)(nil)

// NewAuditPruneHandler returns the handler for TaskAuditPrune tasks.
func NewAuditPruneHandler(pruner AuditPruner, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Retention <= 0 {
			return asynq.SkipRetry
		}
		cutoff := time.Now().UTC().Add(-payload.Retention)
		removed, err := pruner.PruneBefore(ctx, cutoff)
		if err != nil {
			logger.Error("audit prune", slog.Any("error", err))
			return err
		}
		logger.Info("audit prune completed",
			slog.Time("cutoff", cutoff),
			slog.Int64("removed", removed),
		)
		return nil
	}
}
