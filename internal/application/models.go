package application

import (
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// DiffAction tags a DiffResult with whether the schedule is the first release
// of its event or an update over a previous version.
type DiffAction string

const (
	// DiffActionCreate marks a diff with no prior released version to compare against.
	DiffActionCreate DiffAction = "create"
	// DiffActionUpdate marks a diff computed against the previous released version.
	DiffActionUpdate DiffAction = "update"
)

// MovedSlot records one talk that changed room or time between two schedule
// versions.
type MovedSlot struct {
	Submission persistence.Submission
	OldRoom    *persistence.Room
	NewRoom    *persistence.Room
	OldStart   time.Time
	NewStart   time.Time
	NewSlot    persistence.ScheduledSlot
}

// DiffResult classifies every change between a schedule and its predecessor.
// It is a transient value; the cached form references entities by stable
// identifiers only.
type DiffResult struct {
	Action   DiffAction
	Count    int
	New      []persistence.ScheduledSlot
	Canceled []persistence.ScheduledSlot
	Moved    []MovedSlot
}

// WarningKind identifies the class of a scheduling conflict.
type WarningKind string

const (
	// WarningRoom flags a slot scheduled outside its room's availability.
	WarningRoom WarningKind = "room"
	// WarningRoomOverlap flags two slots double-booked into the same room.
	WarningRoomOverlap WarningKind = "room_overlap"
	// WarningSpeaker flags a slot scheduled outside a speaker's availability.
	WarningSpeaker WarningKind = "speaker"
	// WarningSpeakerOverlap flags a speaker booked into two overlapping slots.
	WarningSpeakerOverlap WarningKind = "speaker_overlap"
)

// Warning describes one detected conflict on a slot. RoomID or Speaker
// identifies the subject depending on the kind.
type Warning struct {
	Kind    WarningKind
	Message string
	RoomID  *string
	Speaker *persistence.Speaker
}

// SlotWarnings pairs a fully scheduled slot with the warnings detected on it.
type SlotWarnings struct {
	Slot     persistence.ScheduledSlot
	Warnings []Warning
}

// SummaryWarnings aggregates the event-wide issues organisers should
// acknowledge before a release.
type SummaryWarnings struct {
	TalkWarnings     []SlotWarnings
	UnscheduledCount int
	UnconfirmedCount int
	// NoTrack lists talks without a track; populated only when the event uses tracks.
	NoTrack []persistence.Submission
}

// Attachment is a rendered calendar file handed to the mail system alongside
// a notification.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// SpeakerPlan collects the slots one speaker should be notified about.
type SpeakerPlan struct {
	Speaker     persistence.Speaker
	Created     []persistence.ScheduledSlot
	Updated     []MovedSlot
	Attachments []Attachment
}

// NotificationManifest maps speaker codes to their notification plan. It is
// the sole interface handed to the external mail system.
type NotificationManifest map[string]*SpeakerPlan

// FreezeParams wraps the data required to release a draft schedule.
type FreezeParams struct {
	ScheduleID     string
	Version        string
	Comment        string
	NotifySpeakers bool
}

// FreezeResult reports the outcome of a successful freeze.
type FreezeResult struct {
	Published persistence.Schedule
	Draft     persistence.Schedule
	// Notifications is nil unless NotifySpeakers was requested.
	Notifications NotificationManifest
}
