package application

import (
	"context"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// ScheduleStore captures the schedule level persistence interactions the
// engine issues. Implementations order ListSchedules newest release first
// with the draft leading.
type ScheduleStore interface {
	GetSchedule(ctx context.Context, scheduleID string) (persistence.Schedule, error)
	DraftSchedule(ctx context.Context, eventID string) (persistence.Schedule, error)
	ListSchedules(ctx context.Context, eventID string) ([]persistence.Schedule, error)
	// LatestPublishedBefore returns the most recently released schedule of the
	// event, optionally restricted to releases strictly before a reference
	// time and excluding one schedule id. A nil result means no prior release
	// exists, which is a normal condition, not an error.
	LatestPublishedBefore(ctx context.Context, eventID string, before *time.Time, excludeID string) (*persistence.Schedule, error)
	// VersionExists reports whether another schedule of the event already
	// carries the version name, compared case-insensitively.
	VersionExists(ctx context.Context, eventID, version string) (bool, error)
	CreateSchedule(ctx context.Context, schedule persistence.Schedule) (persistence.Schedule, error)
	MarkScheduleReleased(ctx context.Context, scheduleID, version, comment string, publishedAt time.Time) error
	DeleteSchedule(ctx context.Context, scheduleID string) error
}

// SlotStore captures the slot level persistence interactions. List results
// are ordered by start time ascending with unscheduled slots last, ties
// broken by slot id.
type SlotStore interface {
	// ListSlots returns every slot of the schedule joined with submission and room.
	ListSlots(ctx context.Context, scheduleID string) ([]persistence.ScheduledSlot, error)
	// ListScheduledSlots returns the slots that count as scheduled: room and
	// start set, visible, submission present and not deleted.
	ListScheduledSlots(ctx context.Context, scheduleID string) ([]persistence.ScheduledSlot, error)
	SlotsByID(ctx context.Context, ids []string) (map[string]persistence.ScheduledSlot, error)
	BulkCreateSlots(ctx context.Context, slots []persistence.Slot) error
	SetSlotVisibility(ctx context.Context, scheduleID string, visible bool) error
	// ApplyReleaseVisibility marks the slots that become publicly visible at
	// freeze time: those with a start time whose submission is confirmed, or
	// which are breaks.
	ApplyReleaseVisibility(ctx context.Context, scheduleID string) error
	DeleteSlotsForSchedule(ctx context.Context, scheduleID string) error
}

// EventStore captures event, submission and availability lookups.
type EventStore interface {
	GetEvent(ctx context.Context, eventID string) (persistence.Event, error)
	Rooms(ctx context.Context, eventID string) (map[string]persistence.Room, error)
	SubmissionsByCode(ctx context.Context, eventID string, codes []string) (map[string]persistence.Submission, error)
	// RoomAvailabilities returns the availability rows of every room of the
	// event keyed by room id. An empty map means the event does not use room
	// availability constraints at all.
	RoomAvailabilities(ctx context.Context, eventID string) (map[string][]persistence.Availability, error)
	SpeakerAvailabilities(ctx context.Context, eventID string) (map[string][]persistence.Availability, error)
}

// Store bundles the persistence contracts of the engine. Atomic runs fn
// against a store handle whose writes either all land or are all rolled
// back; the engine relies on this for freeze and unfreeze.
type Store interface {
	ScheduleStore
	SlotStore
	EventStore
	Atomic(ctx context.Context, fn func(Store) error) error
}

// DiffCache is the cache port for serialized diff results. Get returns the
// raw serialized value; implementations drop expired entries on read.
type DiffCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
}

// Notifier receives the per-speaker manifest produced on release. Rendering
// and delivery are entirely external; the engine expects no result.
type Notifier interface {
	NotifySpeakers(ctx context.Context, event persistence.Event, manifest NotificationManifest)
}

// ReleaseListener is informed after a schedule has been released, for
// example to trigger an export job. Listeners are fire-and-forget.
type ReleaseListener interface {
	ScheduleReleased(ctx context.Context, schedule persistence.Schedule)
}
