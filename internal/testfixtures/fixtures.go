// Package testfixtures provides deterministic builders for the stored entity
// model, alongside controllable clocks and identifier generators.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

var (
	eventCounter      uint64
	roomCounter       uint64
	speakerCounter    uint64
	submissionCounter uint64
	scheduleCounter   uint64
	slotCounter       uint64
)

var referenceTime = time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventOption configures a generated event fixture.
type EventOption func(*persistence.Event)

// NewEvent returns a deterministic event with optional overrides.
func NewEvent(opts ...EventOption) persistence.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	event := persistence.Event{
		ID:        fmt.Sprintf("event-%03d", idx),
		Slug:      fmt.Sprintf("conf-%03d", idx),
		Name:      fmt.Sprintf("Conference %03d", idx),
		Timezone:  "UTC",
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventSlug overrides the generated slug.
func WithEventSlug(slug string) EventOption {
	return func(e *persistence.Event) {
		e.Slug = slug
	}
}

// WithEventTimezone sets the event timezone name.
func WithEventTimezone(tz string) EventOption {
	return func(e *persistence.Event) {
		e.Timezone = tz
	}
}

// WithRequestAvailabilities enables speaker availability collection.
func WithRequestAvailabilities() EventOption {
	return func(e *persistence.Event) {
		e.RequestAvailabilities = true
	}
}

// WithTracks enables the track feature on the event.
func WithTracks() EventOption {
	return func(e *persistence.Event) {
		e.UseTracks = true
	}
}

// ----------------------------- Room fixtures ------------------------------

// RoomOption configures a generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoom returns a deterministic room bound to the given event.
func NewRoom(eventID string, opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	room := persistence.Room{
		ID:        fmt.Sprintf("room-%03d", idx),
		EventID:   eventID,
		Name:      fmt.Sprintf("Room %03d", idx),
		Position:  int(idx),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(r *persistence.Room) {
		r.Name = name
	}
}

// --------------------------- Speaker fixtures -----------------------------

// NewSpeaker returns a deterministic speaker.
func NewSpeaker() persistence.Speaker {
	idx := atomic.AddUint64(&speakerCounter, 1)
	return persistence.Speaker{
		ID:   fmt.Sprintf("speaker-%03d", idx),
		Code: fmt.Sprintf("SPK%03d", idx),
		Name: fmt.Sprintf("Speaker %03d", idx),
	}
}

// ------------------------- Submission fixtures ----------------------------

// SubmissionOption configures a generated submission fixture.
type SubmissionOption func(*persistence.Submission)

// NewSubmission returns a deterministic confirmed submission bound to the
// given event.
func NewSubmission(eventID string, opts ...SubmissionOption) persistence.Submission {
	idx := atomic.AddUint64(&submissionCounter, 1)
	submission := persistence.Submission{
		ID:        fmt.Sprintf("submission-%03d", idx),
		EventID:   eventID,
		Code:      fmt.Sprintf("TALK%03d", idx),
		Title:     fmt.Sprintf("Talk %03d", idx),
		State:     persistence.StateConfirmed,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&submission)
	}
	return submission
}

// WithSubmissionCode overrides the generated submission code.
func WithSubmissionCode(code string) SubmissionOption {
	return func(s *persistence.Submission) {
		s.Code = code
	}
}

// WithSubmissionState sets the lifecycle state.
func WithSubmissionState(state string) SubmissionOption {
	return func(s *persistence.Submission) {
		s.State = state
	}
}

// WithSubmissionTrack sets the track identifier.
func WithSubmissionTrack(trackID string) SubmissionOption {
	return func(s *persistence.Submission) {
		id := trackID
		s.TrackID = &id
	}
}

// WithSubmissionSpeakers attaches speakers to the submission.
func WithSubmissionSpeakers(speakers ...persistence.Speaker) SubmissionOption {
	return func(s *persistence.Submission) {
		s.Speakers = append([]persistence.Speaker(nil), speakers...)
	}
}

// --------------------------- Schedule fixtures ----------------------------

// ScheduleOption configures a generated schedule fixture.
type ScheduleOption func(*persistence.Schedule)

// NewDraftSchedule returns the mutable draft schedule of the given event.
func NewDraftSchedule(eventID string, opts ...ScheduleOption) persistence.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	schedule := persistence.Schedule{
		ID:        fmt.Sprintf("schedule-%03d", idx),
		EventID:   eventID,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// NewReleasedSchedule returns a released schedule carrying the given version
// name, published at the reference time.
func NewReleasedSchedule(eventID, version string, opts ...ScheduleOption) persistence.Schedule {
	schedule := NewDraftSchedule(eventID)
	schedule.Version = &version
	published := referenceTime
	schedule.PublishedAt = &published
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// WithScheduleComment sets the release comment.
func WithScheduleComment(comment string) ScheduleOption {
	return func(s *persistence.Schedule) {
		s.Comment = comment
	}
}

// WithSchedulePublishedAt overrides the publication timestamp.
func WithSchedulePublishedAt(t time.Time) ScheduleOption {
	return func(s *persistence.Schedule) {
		published := t
		s.PublishedAt = &published
	}
}

// ----------------------------- Slot fixtures ------------------------------

// SlotOption configures a generated slot fixture.
type SlotOption func(*persistence.Slot)

// NewSlot returns a deterministic hour-long slot in the given schedule,
// starting at the reference time offset by the slot counter.
func NewSlot(scheduleID string, opts ...SlotOption) persistence.Slot {
	idx := atomic.AddUint64(&slotCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	end := start.Add(time.Hour)
	slot := persistence.Slot{
		ID:         fmt.Sprintf("slot-%03d", idx),
		ScheduleID: scheduleID,
		Start:      &start,
		End:        &end,
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&slot)
	}
	return slot
}

// WithSlotSubmission assigns the slot to a submission.
func WithSlotSubmission(submissionID string) SlotOption {
	return func(s *persistence.Slot) {
		id := submissionID
		s.SubmissionID = &id
	}
}

// WithSlotRoom places the slot into a room.
func WithSlotRoom(roomID string) SlotOption {
	return func(s *persistence.Slot) {
		id := roomID
		s.RoomID = &id
	}
}

// WithSlotTimes sets the start and end times.
func WithSlotTimes(start, end time.Time) SlotOption {
	return func(s *persistence.Slot) {
		from, to := start, end
		s.Start = &from
		s.End = &to
	}
}

// WithSlotUnscheduled clears room and time, leaving the talk unplaced.
func WithSlotUnscheduled() SlotOption {
	return func(s *persistence.Slot) {
		s.RoomID = nil
		s.Start = nil
		s.End = nil
	}
}

// WithSlotVisible marks the slot as publicly visible.
func WithSlotVisible() SlotOption {
	return func(s *persistence.Slot) {
		s.IsVisible = true
	}
}

// WithSlotDescription labels a break or other submission-less slot.
func WithSlotDescription(description string) SlotOption {
	return func(s *persistence.Slot) {
		s.Description = description
	}
}
