package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

const (
	defaultDraftDiffTTL    = 60 * time.Second
	defaultReleasedDiffTTL = 10 * time.Minute
)

// DiffService computes the classified changes between a schedule and the
// version released before it. Results are cached per schedule identity; the
// cached form references entities by stable identifiers only.
type DiffService struct {
	store       Store
	cache       DiffCache
	draftTTL    time.Duration
	releasedTTL time.Duration
	logger      *slog.Logger
}

// NewDiffService wires dependencies for diff computation. A nil cache
// disables caching; every call then recomputes.
func NewDiffService(store Store, cache DiffCache) *DiffService {
	return NewDiffServiceWithLogger(store, cache, 0, 0, nil)
}

// NewDiffServiceWithLogger wires diff computation with explicit cache TTLs
// and a base logger. Non-positive TTLs fall back to 60s for drafts and 10m
// for released schedules.
func NewDiffServiceWithLogger(store Store, cache DiffCache, draftTTL, releasedTTL time.Duration, logger *slog.Logger) *DiffService {
	if draftTTL <= 0 {
		draftTTL = defaultDraftDiffTTL
	}
	if releasedTTL <= 0 {
		releasedTTL = defaultReleasedDiffTTL
	}
	return &DiffService{
		store:       store,
		cache:       cache,
		draftTTL:    draftTTL,
		releasedTTL: releasedTTL,
		logger:      defaultLogger(logger),
	}
}

// Changes loads the schedule and returns its diff against the previous
// released version.
func (s *DiffService) Changes(ctx context.Context, scheduleID string) (DiffResult, error) {
	if s == nil || s.store == nil {
		return DiffResult{}, fmt.Errorf("DiffService is not configured")
	}
	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return DiffResult{}, mapStoreError(err)
	}
	return s.ChangesFor(ctx, schedule)
}

// ChangesFor returns the diff of the given schedule against the version
// released before it. When no previous version exists the result carries
// action "create" and empty change lists.
func (s *DiffService) ChangesFor(ctx context.Context, schedule persistence.Schedule) (DiffResult, error) {
	if s == nil || s.store == nil {
		return DiffResult{}, fmt.Errorf("DiffService is not configured")
	}
	logger := serviceLogger(ctx, s.logger, "diff", "changes", "schedule_id", schedule.ID)

	key := diffCacheKey(schedule.ID)
	if s.cache != nil {
		if raw, ok := s.cache.Get(key); ok {
			result, err := s.rehydrate(ctx, schedule.EventID, raw)
			if err == nil {
				return result, nil
			}
			if !isCacheDecodeError(err) {
				return DiffResult{}, err
			}
			logger.DebugContext(ctx, "dropping corrupt diff cache entry", "error", err)
		}
	}

	result, err := s.compute(ctx, schedule)
	if err != nil {
		return DiffResult{}, err
	}

	if s.cache != nil {
		ttl := s.releasedTTL
		if schedule.IsDraft() {
			ttl = s.draftTTL
		}
		if raw, err := json.Marshal(serializeDiff(result)); err == nil {
			s.cache.Set(key, raw, ttl)
		} else {
			logger.WarnContext(ctx, "failed to serialize diff for caching", "error", err)
		}
	}

	return result, nil
}

// HasUnreleasedChanges reports whether the event's draft differs from the
// most recent release. For a first release any scheduled talk counts as a
// change.
func (s *DiffService) HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error) {
	if s == nil || s.store == nil {
		return false, fmt.Errorf("DiffService is not configured")
	}
	draft, err := s.store.DraftSchedule(ctx, eventID)
	if err != nil {
		return false, mapStoreError(err)
	}
	changes, err := s.ChangesFor(ctx, draft)
	if err != nil {
		return false, err
	}
	if changes.Action == DiffActionCreate {
		scheduled, err := s.store.ListScheduledSlots(ctx, draft.ID)
		if err != nil {
			return false, mapStoreError(err)
		}
		return len(scheduled) > 0, nil
	}
	return changes.Count > 0, nil
}

// Invalidate drops the cached diff of a schedule. Called by the release
// service after freeze and unfreeze.
func (s *DiffService) Invalidate(scheduleID string) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Invalidate(diffCacheKey(scheduleID))
}

func (s *DiffService) compute(ctx context.Context, schedule persistence.Schedule) (DiffResult, error) {
	previous, err := s.store.LatestPublishedBefore(ctx, schedule.EventID, schedule.PublishedAt, schedule.ID)
	if err != nil {
		return DiffResult{}, mapStoreError(err)
	}
	if previous == nil {
		return DiffResult{Action: DiffActionCreate}, nil
	}

	event, err := s.store.GetEvent(ctx, schedule.EventID)
	if err != nil {
		return DiffResult{}, mapStoreError(err)
	}
	loc := eventLocation(event)

	previousSlots, err := s.store.ListScheduledSlots(ctx, previous.ID)
	if err != nil {
		return DiffResult{}, mapStoreError(err)
	}
	currentSlots, err := s.store.ListScheduledSlots(ctx, schedule.ID)
	if err != nil {
		return DiffResult{}, mapStoreError(err)
	}

	return computeDiff(previousSlots, currentSlots, loc), nil
}

// slotKey is the identity of a scheduled slot for diff purposes: which talk
// runs in which room at which local time.
type slotKey struct {
	submission string
	room       string
	start      string
}

func keyOf(slot persistence.ScheduledSlot, loc *time.Location) slotKey {
	key := slotKey{}
	if slot.Slot.SubmissionID != nil {
		key.submission = *slot.Slot.SubmissionID
	}
	if slot.Slot.RoomID != nil {
		key.room = *slot.Slot.RoomID
	}
	if slot.Slot.Start != nil {
		key.start = slot.Slot.Start.In(loc).Format(time.RFC3339)
	}
	return key
}

func computeDiff(previousSlots, currentSlots []persistence.ScheduledSlot, loc *time.Location) DiffResult {
	result := DiffResult{Action: DiffActionUpdate}

	oldKeys := make(map[slotKey]struct{}, len(previousSlots))
	newKeys := make(map[slotKey]struct{}, len(currentSlots))
	oldBySubmission := make(map[string][]persistence.ScheduledSlot)
	newBySubmission := make(map[string][]persistence.ScheduledSlot)

	for _, slot := range previousSlots {
		oldKeys[keyOf(slot, loc)] = struct{}{}
		oldBySubmission[*slot.Slot.SubmissionID] = append(oldBySubmission[*slot.Slot.SubmissionID], slot)
	}
	for _, slot := range currentSlots {
		newKeys[keyOf(slot, loc)] = struct{}{}
		newBySubmission[*slot.Slot.SubmissionID] = append(newBySubmission[*slot.Slot.SubmissionID], slot)
	}

	handled := make(map[string]struct{})

	// Talks whose previous placement vanished: canceled entirely or moved.
	for _, slot := range previousSlots {
		if _, still := newKeys[keyOf(slot, loc)]; still {
			continue
		}
		submissionID := *slot.Slot.SubmissionID
		if _, done := handled[submissionID]; done {
			continue
		}
		handled[submissionID] = struct{}{}
		if _, exists := newBySubmission[submissionID]; !exists {
			result.Canceled = append(result.Canceled, oldBySubmission[submissionID]...)
			continue
		}
		added, canceled, moved := matchSlots(oldBySubmission[submissionID], newBySubmission[submissionID], loc)
		result.New = append(result.New, added...)
		result.Canceled = append(result.Canceled, canceled...)
		result.Moved = append(result.Moved, moved...)
	}

	// Talks whose current placement is unprecedented: new entirely or moved.
	for _, slot := range currentSlots {
		if _, was := oldKeys[keyOf(slot, loc)]; was {
			continue
		}
		submissionID := *slot.Slot.SubmissionID
		if _, done := handled[submissionID]; done {
			continue
		}
		handled[submissionID] = struct{}{}
		if _, existed := oldBySubmission[submissionID]; !existed {
			result.New = append(result.New, newBySubmission[submissionID]...)
			continue
		}
		added, canceled, moved := matchSlots(oldBySubmission[submissionID], newBySubmission[submissionID], loc)
		result.New = append(result.New, added...)
		result.Canceled = append(result.Canceled, canceled...)
		result.Moved = append(result.Moved, moved...)
	}

	result.Count = len(result.New) + len(result.Canceled) + len(result.Moved)
	return result
}

// matchSlots pairs a submission's leftover old and new slots positionally, in
// their queried order. The surplus of the longer side is reported as canceled
// or new; the remainder becomes moved entries. The pairing is deliberately
// positional, not similarity based.
func matchSlots(oldSlots, newSlots []persistence.ScheduledSlot, loc *time.Location) (added, canceled []persistence.ScheduledSlot, moved []MovedSlot) {
	newKeySet := make(map[slotKey]struct{}, len(newSlots))
	for _, slot := range newSlots {
		newKeySet[keyOf(slot, loc)] = struct{}{}
	}
	oldKeySet := make(map[slotKey]struct{}, len(oldSlots))
	for _, slot := range oldSlots {
		oldKeySet[keyOf(slot, loc)] = struct{}{}
	}

	oldLeft := make([]persistence.ScheduledSlot, 0, len(oldSlots))
	for _, slot := range oldSlots {
		if _, same := newKeySet[keyOf(slot, loc)]; !same {
			oldLeft = append(oldLeft, slot)
		}
	}
	newLeft := make([]persistence.ScheduledSlot, 0, len(newSlots))
	for _, slot := range newSlots {
		if _, same := oldKeySet[keyOf(slot, loc)]; !same {
			newLeft = append(newLeft, slot)
		}
	}

	if diff := len(oldLeft) - len(newLeft); diff > 0 {
		canceled = append(canceled, oldLeft[:diff]...)
		oldLeft = oldLeft[diff:]
	} else if diff < 0 {
		added = append(added, newLeft[:-diff]...)
		newLeft = newLeft[-diff:]
	}

	for i := range oldLeft {
		oldSlot := oldLeft[i]
		newSlot := newLeft[i]
		moved = append(moved, MovedSlot{
			Submission: *newSlot.Submission,
			OldRoom:    oldSlot.Room,
			NewRoom:    newSlot.Room,
			OldStart:   oldSlot.Slot.Start.In(loc),
			NewStart:   newSlot.Slot.Start.In(loc),
			NewSlot:    newSlot,
		})
	}
	return added, canceled, moved
}

func diffCacheKey(scheduleID string) string {
	return "schedule_" + scheduleID + "_changes"
}

func eventLocation(event persistence.Event) *time.Location {
	if event.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(event.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
