package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// stubStore is an in-memory Store used across the service tests. Results
// are ordered deterministically the way the real store orders them.
type stubStore struct {
	events       map[string]persistence.Event
	schedules    map[string]persistence.Schedule
	slots        map[string]persistence.Slot
	submissions  map[string]persistence.Submission
	rooms        map[string]persistence.Room
	roomAvail    map[string][]persistence.Availability
	speakerAvail map[string][]persistence.Availability
	idSeq        int
	atomicErr    error
}

func newStubStore() *stubStore {
	return &stubStore{
		events:       make(map[string]persistence.Event),
		schedules:    make(map[string]persistence.Schedule),
		slots:        make(map[string]persistence.Slot),
		submissions:  make(map[string]persistence.Submission),
		rooms:        make(map[string]persistence.Room),
		roomAvail:    make(map[string][]persistence.Availability),
		speakerAvail: make(map[string][]persistence.Availability),
	}
}

func (s *stubStore) nextID() string {
	s.idSeq++
	return fmt.Sprintf("stub-%04d", s.idSeq)
}

func (s *stubStore) addEvent(event persistence.Event) persistence.Event {
	if event.ID == "" {
		event.ID = s.nextID()
	}
	if event.Timezone == "" {
		event.Timezone = "UTC"
	}
	s.events[event.ID] = event
	return event
}

func (s *stubStore) addRoom(room persistence.Room) persistence.Room {
	if room.ID == "" {
		room.ID = s.nextID()
	}
	s.rooms[room.ID] = room
	return room
}

func (s *stubStore) addSubmission(submission persistence.Submission) persistence.Submission {
	if submission.ID == "" {
		submission.ID = s.nextID()
	}
	if submission.State == "" {
		submission.State = persistence.StateConfirmed
	}
	s.submissions[submission.ID] = submission
	return submission
}

func (s *stubStore) addSchedule(schedule persistence.Schedule) persistence.Schedule {
	if schedule.ID == "" {
		schedule.ID = s.nextID()
	}
	s.schedules[schedule.ID] = schedule
	return schedule
}

func (s *stubStore) addSlot(slot persistence.Slot) persistence.Slot {
	if slot.ID == "" {
		slot.ID = s.nextID()
	}
	s.slots[slot.ID] = slot
	return slot
}

func (s *stubStore) GetSchedule(_ context.Context, scheduleID string) (persistence.Schedule, error) {
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return persistence.Schedule{}, persistence.ErrNotFound
	}
	return schedule, nil
}

func (s *stubStore) DraftSchedule(_ context.Context, eventID string) (persistence.Schedule, error) {
	for _, schedule := range s.schedules {
		if schedule.EventID == eventID && schedule.Version == nil {
			return schedule, nil
		}
	}
	return persistence.Schedule{}, persistence.ErrNotFound
}

func (s *stubStore) ListSchedules(_ context.Context, eventID string) ([]persistence.Schedule, error) {
	schedules := make([]persistence.Schedule, 0)
	for _, schedule := range s.schedules {
		if schedule.EventID == eventID {
			schedules = append(schedules, schedule)
		}
	}
	sort.Slice(schedules, func(i, j int) bool {
		a, b := schedules[i], schedules[j]
		if a.Version == nil {
			return true
		}
		if b.Version == nil {
			return false
		}
		return a.PublishedAt.After(*b.PublishedAt)
	})
	return schedules, nil
}

func (s *stubStore) LatestPublishedBefore(_ context.Context, eventID string, before *time.Time, excludeID string) (*persistence.Schedule, error) {
	var latest *persistence.Schedule
	for id := range s.schedules {
		schedule := s.schedules[id]
		if schedule.EventID != eventID || schedule.ID == excludeID {
			continue
		}
		if schedule.Version == nil || schedule.PublishedAt == nil {
			continue
		}
		if before != nil && !schedule.PublishedAt.Before(*before) {
			continue
		}
		if latest == nil || schedule.PublishedAt.After(*latest.PublishedAt) {
			copied := schedule
			latest = &copied
		}
	}
	return latest, nil
}

func (s *stubStore) VersionExists(_ context.Context, eventID, version string) (bool, error) {
	for _, schedule := range s.schedules {
		if schedule.EventID != eventID || schedule.Version == nil {
			continue
		}
		if strings.EqualFold(*schedule.Version, version) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) CreateSchedule(_ context.Context, schedule persistence.Schedule) (persistence.Schedule, error) {
	if schedule.ID == "" {
		schedule.ID = s.nextID()
	}
	if _, exists := s.schedules[schedule.ID]; exists {
		return persistence.Schedule{}, persistence.ErrDuplicate
	}
	s.schedules[schedule.ID] = schedule
	return schedule, nil
}

func (s *stubStore) MarkScheduleReleased(_ context.Context, scheduleID, version, comment string, publishedAt time.Time) error {
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return persistence.ErrNotFound
	}
	schedule.Version = &version
	schedule.Comment = comment
	schedule.PublishedAt = &publishedAt
	schedule.UpdatedAt = publishedAt
	s.schedules[scheduleID] = schedule
	return nil
}

func (s *stubStore) DeleteSchedule(_ context.Context, scheduleID string) error {
	if _, ok := s.schedules[scheduleID]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.schedules, scheduleID)
	return nil
}

func (s *stubStore) join(slot persistence.Slot) persistence.ScheduledSlot {
	joined := persistence.ScheduledSlot{Slot: slot}
	if slot.SubmissionID != nil {
		if submission, ok := s.submissions[*slot.SubmissionID]; ok {
			joined.Submission = &submission
		}
	}
	if slot.RoomID != nil {
		if room, ok := s.rooms[*slot.RoomID]; ok {
			joined.Room = &room
		}
	}
	return joined
}

func sortSlots(slots []persistence.ScheduledSlot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i].Slot, slots[j].Slot
		switch {
		case a.Start == nil && b.Start == nil:
			return a.ID < b.ID
		case a.Start == nil:
			return false
		case b.Start == nil:
			return true
		case a.Start.Equal(*b.Start):
			return a.ID < b.ID
		default:
			return a.Start.Before(*b.Start)
		}
	})
}

func (s *stubStore) ListSlots(_ context.Context, scheduleID string) ([]persistence.ScheduledSlot, error) {
	slots := make([]persistence.ScheduledSlot, 0)
	for _, slot := range s.slots {
		if slot.ScheduleID == scheduleID {
			slots = append(slots, s.join(slot))
		}
	}
	sortSlots(slots)
	return slots, nil
}

func (s *stubStore) ListScheduledSlots(ctx context.Context, scheduleID string) ([]persistence.ScheduledSlot, error) {
	all, err := s.ListSlots(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	slots := make([]persistence.ScheduledSlot, 0, len(all))
	for _, slot := range all {
		if slot.Slot.Start == nil || slot.Slot.RoomID == nil || !slot.Slot.IsVisible {
			continue
		}
		if slot.Submission == nil || slot.Submission.State == persistence.StateDeleted {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (s *stubStore) SlotsByID(_ context.Context, ids []string) (map[string]persistence.ScheduledSlot, error) {
	result := make(map[string]persistence.ScheduledSlot, len(ids))
	for _, id := range ids {
		if slot, ok := s.slots[id]; ok {
			result[id] = s.join(slot)
		}
	}
	return result, nil
}

func (s *stubStore) BulkCreateSlots(_ context.Context, slots []persistence.Slot) error {
	for _, slot := range slots {
		if slot.ID == "" {
			slot.ID = s.nextID()
		}
		if _, exists := s.slots[slot.ID]; exists {
			return persistence.ErrDuplicate
		}
		s.slots[slot.ID] = slot
	}
	return nil
}

func (s *stubStore) SetSlotVisibility(_ context.Context, scheduleID string, visible bool) error {
	for id, slot := range s.slots {
		if slot.ScheduleID == scheduleID {
			slot.IsVisible = visible
			s.slots[id] = slot
		}
	}
	return nil
}

func (s *stubStore) ApplyReleaseVisibility(_ context.Context, scheduleID string) error {
	for id, slot := range s.slots {
		if slot.ScheduleID != scheduleID || slot.Start == nil {
			continue
		}
		if slot.SubmissionID == nil {
			slot.IsVisible = true
			s.slots[id] = slot
			continue
		}
		if submission, ok := s.submissions[*slot.SubmissionID]; ok && submission.State == persistence.StateConfirmed {
			slot.IsVisible = true
			s.slots[id] = slot
		}
	}
	return nil
}

func (s *stubStore) DeleteSlotsForSchedule(_ context.Context, scheduleID string) error {
	for id, slot := range s.slots {
		if slot.ScheduleID == scheduleID {
			delete(s.slots, id)
		}
	}
	return nil
}

func (s *stubStore) GetEvent(_ context.Context, eventID string) (persistence.Event, error) {
	event, ok := s.events[eventID]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (s *stubStore) Rooms(_ context.Context, eventID string) (map[string]persistence.Room, error) {
	rooms := make(map[string]persistence.Room)
	for id, room := range s.rooms {
		if room.EventID == eventID {
			rooms[id] = room
		}
	}
	return rooms, nil
}

func (s *stubStore) SubmissionsByCode(_ context.Context, eventID string, codes []string) (map[string]persistence.Submission, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}
	result := make(map[string]persistence.Submission)
	for _, submission := range s.submissions {
		if submission.EventID != eventID {
			continue
		}
		if _, ok := wanted[submission.Code]; ok {
			result[submission.Code] = submission
		}
	}
	return result, nil
}

func (s *stubStore) RoomAvailabilities(_ context.Context, eventID string) (map[string][]persistence.Availability, error) {
	return s.availabilities(s.roomAvail, eventID), nil
}

func (s *stubStore) SpeakerAvailabilities(_ context.Context, eventID string) (map[string][]persistence.Availability, error) {
	return s.availabilities(s.speakerAvail, eventID), nil
}

func (s *stubStore) availabilities(source map[string][]persistence.Availability, eventID string) map[string][]persistence.Availability {
	result := make(map[string][]persistence.Availability)
	for subject, rows := range source {
		for _, row := range rows {
			if row.EventID == eventID {
				result[subject] = append(result[subject], row)
			}
		}
	}
	return result
}

func (s *stubStore) Atomic(_ context.Context, fn func(Store) error) error {
	if s.atomicErr != nil {
		return s.atomicErr
	}
	return fn(s)
}

func strPtr(value string) *string { return &value }

func timePtr(value time.Time) *time.Time { return &value }

// stubCache records cache interactions for assertions.
type stubCache struct {
	values      map[string][]byte
	ttls        map[string]time.Duration
	invalidated []string
}

func newStubCache() *stubCache {
	return &stubCache{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *stubCache) Get(key string) ([]byte, bool) {
	value, ok := c.values[key]
	return value, ok
}

func (c *stubCache) Set(key string, value []byte, ttl time.Duration) {
	c.values[key] = value
	c.ttls[key] = ttl
}

func (c *stubCache) Invalidate(key string) {
	delete(c.values, key)
	c.invalidated = append(c.invalidated, key)
}
