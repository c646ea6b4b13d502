// Package persistence defines the stored entity model of the conference
// scheduling engine and the sentinel errors shared by its store
// implementations.
package persistence

import "time"

// Submission lifecycle states that matter to the engine. Visibility and diff
// computations only distinguish confirmed and deleted from the rest.
const (
	StateSubmitted = "submitted"
	StateAccepted  = "accepted"
	StateConfirmed = "confirmed"
	StateCanceled  = "canceled"
	StateWithdrawn = "withdrawn"
	StateDeleted   = "deleted"
)

// Event is one conference edition. Feature flags steer which conflict checks
// and summary warnings apply.
type Event struct {
	ID       string
	Slug     string
	Name     string
	Timezone string
	// RequestAvailabilities reports whether speakers were asked for their
	// availability during the call for proposals.
	RequestAvailabilities bool
	UseTracks             bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Room is a venue room talks can be scheduled into.
type Room struct {
	ID        string
	EventID   string
	Name      string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Speaker is a person attached to one or more submissions. Code is the
// stable public identifier used in serialized payloads.
type Speaker struct {
	ID   string
	Code string
	Name string
}

// Submission is a proposed talk. Speakers are loaded joined wherever the
// engine needs them.
type Submission struct {
	ID        string
	EventID   string
	Code      string
	Title     string
	State     string
	TrackID   *string
	Speakers  []Speaker
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Schedule is one timetable snapshot of an event. A nil Version marks the
// single mutable draft; released schedules carry a version name and a
// publication timestamp and are never mutated afterwards.
type Schedule struct {
	ID          string
	EventID     string
	Version     *string
	Comment     string
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsDraft reports whether the schedule is the event's mutable draft.
func (s Schedule) IsDraft() bool {
	return s.Version == nil
}

// Slot assigns a submission, or a break when SubmissionID is nil, to a room
// and time range within exactly one schedule.
type Slot struct {
	ID           string
	ScheduleID   string
	SubmissionID *string
	RoomID       *string
	Start        *time.Time
	End          *time.Time
	IsVisible    bool
	// Description labels breaks and other submission-less slots.
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ScheduledSlot is a slot joined with its submission and room. Submission and
// Room are nil when the slot is a break or unassigned.
type ScheduledSlot struct {
	Slot       Slot
	Submission *Submission
	Room       *Room
}

// Availability is a half-open time window [Start, End) during which the
// referenced room or speaker can be scheduled. Exactly one of RoomID and
// SpeakerID is set. Windows of the same subject may overlap; consumers always
// work on their union.
type Availability struct {
	ID        string
	EventID   string
	RoomID    *string
	SpeakerID *string
	Start     time.Time
	End       time.Time
}
