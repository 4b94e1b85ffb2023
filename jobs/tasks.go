package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/haulstack/haulstack/internal/audit"
	jobmetrics "github.com/haulstack/haulstack/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRoleChangeAudit is the task type for appending a role change
	// to the audit log.
	TaskTypeRoleChangeAudit = "audit:role_change"
)

// NewRoleChangeAuditTask constructs an Asynq task carrying one audit entry.
// The entry ID becomes the task ID, so a double enqueue of the same entry is
// rejected by the queue instead of appended twice.
func NewRoleChangeAuditTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRoleChangeAudit, data, asynq.TaskID(entry.ID.String())), nil
}

// AuditStore appends entries to the audit log.
type AuditStore interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// WriteFailureCounter counts audit appends that failed in the worker.
type WriteFailureCounter interface {
	Inc()
}

// NewRoleChangeAuditHandler returns the worker-side handler for
// TaskTypeRoleChangeAudit. A store failure is counted, logged and returned so
// Asynq retries the append; the entry ID makes the retry idempotent.
func NewRoleChangeAuditHandler(store AuditStore, logger *slog.Logger, failures WriteFailureCounter, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeRoleChangeAudit)
		var entry audit.Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			logger.Error("audit task payload invalid", slog.Any("error", err))
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		if err := store.Record(ctx, entry); err != nil {
			logger.Warn("audit append failed",
				slog.String("entry_id", entry.ID.String()),
				slog.Int64("target_user_id", entry.TargetUserID),
				slog.Any("error", err),
			)
			if failures != nil {
				failures.Inc()
			}
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
