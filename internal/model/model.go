package model

import "time"

const (
	StatePending   = "pending"
	StatePlanned   = "planned"
	StateOngoing   = "ongoing"
	StateCompleted = "completed"
)

const (
	ApprovalTypeCreate = "create"
	ApprovalTypeUpdate = "update"

	ActionPending = "pending"
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

type Booking struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	RoomID    int64     `db:"room_id" json:"room_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Purpose   string    `db:"purpose,omitempty" json:"purpose,omitempty"`
}

// Event is the stored shape. "ongoing" and "completed" are never written to
// the store; they are derived at read time from a planned event's interval.
type Event struct {
	EventID           string    `db:"event_id" json:"event_id"`
	State             string    `db:"state" json:"state"`
	HasPendingEdit    bool      `db:"has_pending_edit" json:"has_pending_edit"`
	EventName         string    `db:"event_name" json:"event_name"`
	OrganizerID       int64     `db:"organizer_id" json:"organizer_id"`
	RoomID            int64     `db:"room_id" json:"room_id"`
	EventType         string    `db:"event_type" json:"event_type"`
	EventStart        time.Time `db:"event_start" json:"event_start"`
	EventEnd          time.Time `db:"event_end" json:"event_end"`
	ExpectedAttendees int       `db:"expected_attendees" json:"expected_attendees"`
}

// EventSnapshot is the candidate event carried inside an approval. For a
// create approval every field is set; for an update approval only the fields
// the organizer asked to change are set, plus start/end which are always
// filled in from the stored event before validation.
type EventSnapshot struct {
	EventID           string     `json:"event_id"`
	OrganizerID       int64      `json:"organizer_id"`
	EventName         *string    `json:"event_name,omitempty"`
	RoomID            *int64     `json:"room_id,omitempty"`
	EventType         *string    `json:"event_type,omitempty"`
	EventStart        *time.Time `json:"event_start,omitempty"`
	EventEnd          *time.Time `json:"event_end,omitempty"`
	ExpectedAttendees *int       `json:"expected_attendees,omitempty"`
}

type Approval struct {
	ApprovalID string        `db:"approval_id" json:"approval_id"`
	EventID    string        `db:"event_id" json:"event_id"`
	Type       string        `db:"type" json:"type"`
	PendingObj EventSnapshot `db:"pending_obj" json:"pending_obj"`
	Action     string        `db:"action" json:"action"`
}
