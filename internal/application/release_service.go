package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// reservedVersionNames can never be used for a release; they address the
// draft and the most recent release in URLs and lookups.
var reservedVersionNames = map[string]struct{}{
	"wip":    {},
	"latest": {},
}

// maxVersionNameLength is the longest accepted version name in bytes.
const maxVersionNameLength = 190

func validateVersionName(name string) error {
	if name == "" {
		return ErrInvalidVersionName
	}
	if _, reserved := reservedVersionNames[strings.ToLower(name)]; reserved {
		return ErrInvalidVersionName
	}
	if len(name) > maxVersionNameLength {
		vErr := &ValidationError{}
		vErr.add("version", fmt.Sprintf("must be at most %d characters", maxVersionNameLength))
		return vErr
	}
	return nil
}

// ReleaseService owns the freeze/unfreeze state machine that turns the
// event's mutable draft into immutable released versions. Freeze and
// unfreeze read-then-write the single draft and must be serialized per
// event by the caller.
type ReleaseService struct {
	store       Store
	diffs       *DiffService
	planner     *NotificationPlanner
	notifier    Notifier
	listeners   []ReleaseListener
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewReleaseService wires dependencies for schedule releases.
func NewReleaseService(store Store, diffs *DiffService, planner *NotificationPlanner, idGenerator func() string, now func() time.Time) *ReleaseService {
	return NewReleaseServiceWithLogger(store, diffs, planner, nil, nil, idGenerator, now, nil)
}

// NewReleaseServiceWithLogger wires schedule releases with an optional
// notifier, release listeners and a base logger.
func NewReleaseServiceWithLogger(store Store, diffs *DiffService, planner *NotificationPlanner, notifier Notifier, listeners []ReleaseListener, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReleaseService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReleaseService{
		store:       store,
		diffs:       diffs,
		planner:     planner,
		notifier:    notifier,
		listeners:   listeners,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// Freeze releases the draft schedule under the given version name and
// produces a fresh empty draft carrying clones of all slots. The store
// guarantees the writes land as one unit. When NotifySpeakers is set the
// returned result carries the per-speaker manifest and the configured
// notifier, if any, receives it.
func (s *ReleaseService) Freeze(ctx context.Context, params FreezeParams) (FreezeResult, error) {
	if s == nil || s.store == nil {
		return FreezeResult{}, fmt.Errorf("ReleaseService is not configured")
	}
	logger := serviceLogger(ctx, s.logger, "release", "freeze", "schedule_id", params.ScheduleID)

	schedule, err := s.store.GetSchedule(ctx, params.ScheduleID)
	if err != nil {
		return FreezeResult{}, mapStoreError(err)
	}

	name := strings.TrimSpace(params.Version)
	if err := validateVersionName(name); err != nil {
		logger.InfoContext(ctx, "freeze rejected", "error_kind", ErrorKind(err))
		return FreezeResult{}, err
	}
	if !schedule.IsDraft() {
		logger.InfoContext(ctx, "freeze rejected", "error_kind", ErrorKind(ErrAlreadyVersioned))
		return FreezeResult{}, ErrAlreadyVersioned
	}
	if exists, err := s.store.VersionExists(ctx, schedule.EventID, name); err != nil {
		return FreezeResult{}, mapStoreError(err)
	} else if exists {
		return FreezeResult{}, ErrDuplicateVersion
	}

	publishedAt := s.now()
	var draft persistence.Schedule

	err = s.store.Atomic(ctx, func(tx Store) error {
		// Re-verify inside the transaction: two concurrent freezes must not
		// both claim the same version name.
		if exists, err := tx.VersionExists(ctx, schedule.EventID, name); err != nil {
			return mapStoreError(err)
		} else if exists {
			return ErrDuplicateVersion
		}

		// The new draft is created before the release so the event never has
		// zero drafts.
		created, err := tx.CreateSchedule(ctx, persistence.Schedule{
			ID:        s.idGenerator(),
			EventID:   schedule.EventID,
			CreatedAt: publishedAt,
			UpdatedAt: publishedAt,
		})
		if err != nil {
			return mapStoreError(err)
		}
		draft = created

		if err := tx.MarkScheduleReleased(ctx, schedule.ID, name, params.Comment, publishedAt); err != nil {
			return mapStoreError(err)
		}
		if err := tx.SetSlotVisibility(ctx, schedule.ID, false); err != nil {
			return mapStoreError(err)
		}
		if err := tx.ApplyReleaseVisibility(ctx, schedule.ID); err != nil {
			return mapStoreError(err)
		}

		slots, err := tx.ListSlots(ctx, schedule.ID)
		if err != nil {
			return mapStoreError(err)
		}
		clones := make([]persistence.Slot, 0, len(slots))
		for _, slot := range slots {
			clones = append(clones, s.cloneSlot(slot.Slot, draft.ID, publishedAt))
		}
		if err := tx.BulkCreateSlots(ctx, clones); err != nil {
			return mapStoreError(err)
		}
		return nil
	})
	if err != nil {
		return FreezeResult{}, err
	}

	s.diffs.Invalidate(schedule.ID)
	s.diffs.Invalidate(draft.ID)

	published, err := s.store.GetSchedule(ctx, schedule.ID)
	if err != nil {
		return FreezeResult{}, mapStoreError(err)
	}

	result := FreezeResult{Published: published, Draft: draft}

	if params.NotifySpeakers && s.diffs != nil && s.planner != nil {
		// Notification planning happens after the release committed; a
		// failure here is reported to the mail side, not to the release.
		diff, err := s.diffs.ChangesFor(ctx, published)
		if err != nil {
			logger.WarnContext(ctx, "failed to compute diff for release notifications", "error", err)
		} else {
			manifest, err := s.planner.SpeakersConcerned(ctx, published, diff)
			if err != nil {
				logger.WarnContext(ctx, "failed to plan release notifications", "error", err)
			} else {
				result.Notifications = manifest
				if s.notifier != nil {
					event, err := s.store.GetEvent(ctx, published.EventID)
					if err != nil {
						logger.WarnContext(ctx, "failed to load event for notifier", "error", err)
					} else {
						s.notifier.NotifySpeakers(ctx, event, manifest)
					}
				}
			}
		}
	}

	for _, listener := range s.listeners {
		if listener != nil {
			listener.ScheduleReleased(ctx, published)
		}
	}

	logger.InfoContext(ctx, "schedule released", "version", name, "draft_id", draft.ID)
	return result, nil
}

// Unfreeze discards the event's current draft and rebuilds it from an older
// released schedule. Talks scheduled after that release was made are kept:
// draft slots whose submission is absent from the released schedule are
// carried over alongside all released slots.
func (s *ReleaseService) Unfreeze(ctx context.Context, scheduleID string) (persistence.Schedule, error) {
	if s == nil || s.store == nil {
		return persistence.Schedule{}, fmt.Errorf("ReleaseService is not configured")
	}
	logger := serviceLogger(ctx, s.logger, "release", "unfreeze", "schedule_id", scheduleID)

	schedule, err := s.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}
	if schedule.IsDraft() {
		logger.InfoContext(ctx, "unfreeze rejected", "error_kind", ErrorKind(ErrNotVersioned))
		return persistence.Schedule{}, ErrNotVersioned
	}

	oldDraft, err := s.store.DraftSchedule(ctx, schedule.EventID)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}

	releasedSlots, err := s.store.ListSlots(ctx, schedule.ID)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}
	draftSlots, err := s.store.ListSlots(ctx, oldDraft.ID)
	if err != nil {
		return persistence.Schedule{}, mapStoreError(err)
	}

	releasedSubmissions := make(map[string]struct{}, len(releasedSlots))
	for _, slot := range releasedSlots {
		if slot.Slot.SubmissionID != nil {
			releasedSubmissions[*slot.Slot.SubmissionID] = struct{}{}
		}
	}

	carried := make([]persistence.ScheduledSlot, 0, len(draftSlots))
	for _, slot := range draftSlots {
		if slot.Slot.SubmissionID == nil {
			continue
		}
		if _, present := releasedSubmissions[*slot.Slot.SubmissionID]; present {
			continue
		}
		carried = append(carried, slot)
	}

	now := s.now()
	var newDraft persistence.Schedule

	err = s.store.Atomic(ctx, func(tx Store) error {
		created, err := tx.CreateSchedule(ctx, persistence.Schedule{
			ID:        s.idGenerator(),
			EventID:   schedule.EventID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return mapStoreError(err)
		}
		newDraft = created

		clones := make([]persistence.Slot, 0, len(carried)+len(releasedSlots))
		for _, slot := range carried {
			clones = append(clones, s.cloneSlot(slot.Slot, newDraft.ID, now))
		}
		for _, slot := range releasedSlots {
			clones = append(clones, s.cloneSlot(slot.Slot, newDraft.ID, now))
		}
		if err := tx.BulkCreateSlots(ctx, clones); err != nil {
			return mapStoreError(err)
		}

		if err := tx.DeleteSlotsForSchedule(ctx, oldDraft.ID); err != nil {
			return mapStoreError(err)
		}
		if err := tx.DeleteSchedule(ctx, oldDraft.ID); err != nil {
			return mapStoreError(err)
		}
		return nil
	})
	if err != nil {
		return persistence.Schedule{}, err
	}

	s.diffs.Invalidate(oldDraft.ID)
	s.diffs.Invalidate(newDraft.ID)

	logger.InfoContext(ctx, "draft rebuilt from released schedule", "version", *schedule.Version, "draft_id", newDraft.ID)
	return newDraft, nil
}

// cloneSlot copies a slot into another schedule under a fresh identity.
func (s *ReleaseService) cloneSlot(slot persistence.Slot, scheduleID string, now time.Time) persistence.Slot {
	clone := slot
	clone.ID = s.idGenerator()
	clone.ScheduleID = scheduleID
	clone.CreatedAt = now
	clone.UpdatedAt = now
	return clone
}
