package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/haulstack/haulstack/internal/audit"
)

type memoryStore struct {
	entries []audit.Entry
	failErr error
}

func (s *memoryStore) Record(ctx context.Context, entry audit.Entry) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

type countingCounter struct{ n int }

func (c *countingCounter) Inc() { c.n++ }

func testEntry() audit.Entry {
	return audit.Entry{
		ID:                  uuid.New(),
		TargetUserID:        2,
		TargetUsername:      "Sari",
		PerformedBy:         1,
		PerformedByUsername: "Owner",
		OldRole:             "sales",
		NewRole:             "manager",
		Reason:              "promotion",
		Timestamp:           time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRoleChangeAuditTaskUsesEntryIDAsTaskID(t *testing.T) {
	entry := testEntry()
	task, err := NewRoleChangeAuditTask(entry)
	require.NoError(t, err)
	require.Equal(t, TaskTypeRoleChangeAudit, task.Type())
	require.Contains(t, string(task.Payload()), entry.ID.String())
}

func TestAuditHandlerRecordsEntry(t *testing.T) {
	store := &memoryStore{}
	handler := NewRoleChangeAuditHandler(store, nil, nil, nil)

	entry := testEntry()
	task, err := NewRoleChangeAuditTask(entry)
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, store.entries, 1)
	require.Equal(t, entry.ID, store.entries[0].ID)
	require.Equal(t, "manager", store.entries[0].NewRole)
}

func TestAuditHandlerReturnsStoreErrorForRetry(t *testing.T) {
	store := &memoryStore{failErr: errors.New("connection refused")}
	counter := &countingCounter{}
	handler := NewRoleChangeAuditHandler(store, nil, counter, nil)

	task, err := NewRoleChangeAuditTask(testEntry())
	require.NoError(t, err)

	err = handler(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Equal(t, 1, counter.n)
}

func TestAuditHandlerSkipsRetryOnGarbagePayload(t *testing.T) {
	store := &memoryStore{}
	handler := NewRoleChangeAuditHandler(store, nil, nil, nil)

	task := asynq.NewTask(TaskTypeRoleChangeAudit, []byte("not json"))
	err := handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, store.entries)
}
