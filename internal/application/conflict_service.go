package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/conference-scheduler/internal/interval"
	"github.com/example/conference-scheduler/internal/persistence"
)

// ConflictService detects double-bookings and availability violations on the
// slots of a schedule. All computations are read-only over a store snapshot.
type ConflictService struct {
	store  Store
	logger *slog.Logger
}

// NewConflictService wires dependencies for conflict detection.
func NewConflictService(store Store) *ConflictService {
	return NewConflictServiceWithLogger(store, nil)
}

// NewConflictServiceWithLogger wires conflict detection with a base logger.
func NewConflictServiceWithLogger(store Store, logger *slog.Logger) *ConflictService {
	return &ConflictService{store: store, logger: defaultLogger(logger)}
}

// availabilityContext carries the bulk-loaded, pre-merged availability
// windows reused across all slots of one schedule pass.
type availabilityContext struct {
	// roomWindows maps room ids to their merged availability windows.
	roomWindows map[string][]interval.Interval
	// speakerWindows maps speaker ids to their merged availability windows.
	// Nil when the event does not ask speakers for availability.
	speakerWindows map[string][]interval.Interval
	// roomConstraintsActive reports whether any room of the event has
	// availability rows at all; without them no room warnings are emitted.
	roomConstraintsActive bool
}

// AllTalkWarnings evaluates every fully scheduled, non-deleted slot of the
// schedule and returns those that carry warnings, in query order. When
// updatedSince is set, only slots updated at or after that instant are
// evaluated; this backs incremental re-checks.
func (s *ConflictService) AllTalkWarnings(ctx context.Context, scheduleID string, updatedSince *time.Time) ([]SlotWarnings, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("ConflictService is not configured")
	}

	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	event, err := s.store.GetEvent(ctx, schedule.EventID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	slots, err := s.store.ListSlots(ctx, scheduleID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	avail, err := s.loadAvailabilities(ctx, event)
	if err != nil {
		return nil, err
	}

	result := make([]SlotWarnings, 0)
	for _, slot := range slots {
		if !isFullyScheduled(slot) {
			continue
		}
		if updatedSince != nil && slot.Slot.UpdatedAt.Before(*updatedSince) {
			continue
		}
		warnings := talkWarnings(slot, slots, avail)
		if len(warnings) > 0 {
			result = append(result, SlotWarnings{Slot: slot, Warnings: warnings})
		}
	}
	return result, nil
}

// SummaryWarnings aggregates the per-slot warnings with the event-wide
// counts organisers acknowledge before a release.
func (s *ConflictService) SummaryWarnings(ctx context.Context, scheduleID string) (SummaryWarnings, error) {
	if s == nil || s.store == nil {
		return SummaryWarnings{}, fmt.Errorf("ConflictService is not configured")
	}

	talkWarnings, err := s.AllTalkWarnings(ctx, scheduleID, nil)
	if err != nil {
		return SummaryWarnings{}, err
	}

	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return SummaryWarnings{}, mapStoreError(err)
	}
	event, err := s.store.GetEvent(ctx, schedule.EventID)
	if err != nil {
		return SummaryWarnings{}, mapStoreError(err)
	}
	slots, err := s.store.ListSlots(ctx, scheduleID)
	if err != nil {
		return SummaryWarnings{}, mapStoreError(err)
	}

	summary := SummaryWarnings{TalkWarnings: talkWarnings}
	for _, slot := range slots {
		if slot.Submission == nil {
			continue
		}
		if slot.Slot.Start == nil {
			summary.UnscheduledCount++
		}
		if slot.Submission.State != persistence.StateConfirmed {
			summary.UnconfirmedCount++
		}
		if event.UseTracks && slot.Submission.TrackID == nil {
			summary.NoTrack = append(summary.NoTrack, *slot.Submission)
		}
	}
	return summary, nil
}

func (s *ConflictService) loadAvailabilities(ctx context.Context, event persistence.Event) (availabilityContext, error) {
	avail := availabilityContext{}

	roomRows, err := s.store.RoomAvailabilities(ctx, event.ID)
	if err != nil {
		return avail, mapStoreError(err)
	}
	avail.roomConstraintsActive = len(roomRows) > 0
	avail.roomWindows = mergeWindows(roomRows)

	if event.RequestAvailabilities {
		speakerRows, err := s.store.SpeakerAvailabilities(ctx, event.ID)
		if err != nil {
			return avail, mapStoreError(err)
		}
		avail.speakerWindows = mergeWindows(speakerRows)
	}

	return avail, nil
}

func mergeWindows(rows map[string][]persistence.Availability) map[string][]interval.Interval {
	merged := make(map[string][]interval.Interval, len(rows))
	for subject, availabilities := range rows {
		windows := make([]interval.Interval, 0, len(availabilities))
		for _, availability := range availabilities {
			windows = append(windows, interval.Interval{Start: availability.Start, End: availability.End})
		}
		merged[subject] = interval.Union(windows)
	}
	return merged
}

// talkWarnings computes the warnings for one fully scheduled slot against
// the other slots of the same schedule and the pre-merged availabilities.
func talkWarnings(slot persistence.ScheduledSlot, all []persistence.ScheduledSlot, avail availabilityContext) []Warning {
	if !isFullyScheduled(slot) {
		return nil
	}

	warnings := make([]Warning, 0)
	slotWindow := slotInterval(slot.Slot)
	roomID := *slot.Slot.RoomID

	if avail.roomConstraintsActive {
		if windows := avail.roomWindows[roomID]; len(windows) > 0 && !interval.ContainedIn(windows, slotWindow) {
			warnings = append(warnings, Warning{
				Kind:    WarningRoom,
				Message: fmt.Sprintf("Room %q is not available at the scheduled time.", roomName(slot)),
				RoomID:  &roomID,
			})
		}
	}

	for _, other := range all {
		if other.Slot.ID == slot.Slot.ID || other.Slot.Start == nil || other.Slot.RoomID == nil {
			continue
		}
		if *other.Slot.RoomID != roomID {
			continue
		}
		if interval.Overlaps(slotWindow, slotInterval(other.Slot)) {
			warnings = append(warnings, Warning{
				Kind:    WarningRoomOverlap,
				Message: "Another session in the same room overlaps with this one.",
				RoomID:  &roomID,
			})
			break
		}
	}

	for i := range slot.Submission.Speakers {
		speaker := slot.Submission.Speakers[i]

		if avail.speakerWindows != nil {
			if windows := avail.speakerWindows[speaker.ID]; len(windows) > 0 && !interval.ContainedIn(windows, slotWindow) {
				warnings = append(warnings, Warning{
					Kind:    WarningSpeaker,
					Message: fmt.Sprintf("%s is not available at the scheduled time.", speaker.Name),
					Speaker: &speaker,
				})
			}
		}

		for _, other := range all {
			if other.Slot.ID == slot.Slot.ID || other.Slot.Start == nil || other.Submission == nil {
				continue
			}
			if !submissionHasSpeaker(other.Submission, speaker.ID) {
				continue
			}
			if interval.Overlaps(slotWindow, slotInterval(other.Slot)) {
				warnings = append(warnings, Warning{
					Kind:    WarningSpeakerOverlap,
					Message: fmt.Sprintf("%s is scheduled for another session at the same time.", speaker.Name),
					Speaker: &speaker,
				})
				break
			}
		}
	}

	return warnings
}

func isFullyScheduled(slot persistence.ScheduledSlot) bool {
	if slot.Submission == nil || slot.Slot.Start == nil || slot.Slot.RoomID == nil {
		return false
	}
	return slot.Submission.State != persistence.StateDeleted
}

func slotInterval(slot persistence.Slot) interval.Interval {
	window := interval.Interval{Start: *slot.Start, End: *slot.Start}
	if slot.End != nil {
		window.End = *slot.End
	}
	return window
}

func submissionHasSpeaker(submission *persistence.Submission, speakerID string) bool {
	for _, speaker := range submission.Speakers {
		if speaker.ID == speakerID {
			return true
		}
	}
	return false
}

func roomName(slot persistence.ScheduledSlot) string {
	if slot.Room != nil {
		return slot.Room.Name
	}
	return *slot.Slot.RoomID
}
