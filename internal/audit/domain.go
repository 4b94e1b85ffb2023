package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is an immutable record of an executed role change. ID doubles as the
// dedupe key: the append procedure ignores an ID it has already stored, so a
// redelivered queue task cannot duplicate the record.
type Entry struct {
	ID                  uuid.UUID `json:"id"`
	TargetUserID        int64     `json:"target_user_id"`
	TargetUsername      string    `json:"target_username"`
	PerformedBy         int64     `json:"performed_by"`
	PerformedByUsername string    `json:"performed_by_username"`
	OldRole             string    `json:"old_role"`
	NewRole             string    `json:"new_role"`
	Reason              string    `json:"reason"`
	Timestamp           time.Time `json:"timestamp"`
}

// EntryInput carries the fields of a new entry; the ID is assigned here.
type EntryInput struct {
	TargetUserID        int64
	TargetUsername      string
	PerformedBy         int64
	PerformedByUsername string
	OldRole             string
	NewRole             string
	Reason              string
	Timestamp           time.Time
}

// NewEntry stamps an EntryInput with a fresh ID.
func NewEntry(input EntryInput) Entry {
	ts := input.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return Entry{
		ID:                  uuid.New(),
		TargetUserID:        input.TargetUserID,
		TargetUsername:      input.TargetUsername,
		PerformedBy:         input.PerformedBy,
		PerformedByUsername: input.PerformedByUsername,
		OldRole:             input.OldRole,
		NewRole:             input.NewRole,
		Reason:              input.Reason,
		Timestamp:           ts,
	}
}

// TimelineFilters narrows the role-change timeline.
type TimelineFilters struct {
	From         time.Time
	To           time.Time
	TargetUserID int64
	PerformedBy  int64
	Page         int
	PageSize     int
}

// PagingInfo reports the paging state of a timeline result.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles timeline rows with paging information.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
