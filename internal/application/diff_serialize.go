package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

// errCacheDecode wraps any failure to turn a cached payload back into a
// DiffResult. It is never surfaced; the caller falls back to recomputation.
var errCacheDecode = errors.New("application: corrupt diff cache entry")

func isCacheDecodeError(err error) bool {
	return errors.Is(err, errCacheDecode)
}

type serializedDiff struct {
	Action   string           `json:"action"`
	Count    int              `json:"count"`
	New      []serializedSlot `json:"new_talks"`
	Canceled []serializedSlot `json:"canceled_talks"`
	Moved    []serializedMove `json:"moved_talks"`
}

type serializedSlot struct {
	ID             string `json:"id"`
	SubmissionCode string `json:"submission_code"`
}

type serializedMove struct {
	SubmissionCode string    `json:"submission_code"`
	OldStart       time.Time `json:"old_start"`
	NewStart       time.Time `json:"new_start"`
	OldRoom        *string   `json:"old_room"`
	NewRoom        *string   `json:"new_room"`
	NewSlotID      string    `json:"new_slot_id"`
}

// serializeDiff reduces a DiffResult to stable external identifiers so the
// cached form stays small and remains valid across entity re-fetches.
func serializeDiff(result DiffResult) serializedDiff {
	out := serializedDiff{
		Action:   string(result.Action),
		Count:    result.Count,
		New:      make([]serializedSlot, 0, len(result.New)),
		Canceled: make([]serializedSlot, 0, len(result.Canceled)),
		Moved:    make([]serializedMove, 0, len(result.Moved)),
	}
	for _, slot := range result.New {
		out.New = append(out.New, serializeSlot(slot))
	}
	for _, slot := range result.Canceled {
		out.Canceled = append(out.Canceled, serializeSlot(slot))
	}
	for _, move := range result.Moved {
		entry := serializedMove{
			SubmissionCode: move.Submission.Code,
			OldStart:       move.OldStart,
			NewStart:       move.NewStart,
			NewSlotID:      move.NewSlot.Slot.ID,
		}
		if move.OldRoom != nil {
			roomID := move.OldRoom.ID
			entry.OldRoom = &roomID
		}
		if move.NewRoom != nil {
			roomID := move.NewRoom.ID
			entry.NewRoom = &roomID
		}
		out.Moved = append(out.Moved, entry)
	}
	return out
}

func serializeSlot(slot persistence.ScheduledSlot) serializedSlot {
	entry := serializedSlot{ID: slot.Slot.ID}
	if slot.Submission != nil {
		entry.SubmissionCode = slot.Submission.Code
	}
	return entry
}

// rehydrate reconstructs a DiffResult from its cached form. Entries whose
// identifiers no longer resolve (the slot or submission was deleted in the
// meantime) are dropped silently rather than failing the read.
func (s *DiffService) rehydrate(ctx context.Context, eventID string, raw []byte) (DiffResult, error) {
	var serialized serializedDiff
	if err := json.Unmarshal(raw, &serialized); err != nil {
		return DiffResult{}, fmt.Errorf("%w: %v", errCacheDecode, err)
	}
	switch DiffAction(serialized.Action) {
	case DiffActionCreate, DiffActionUpdate:
	default:
		return DiffResult{}, fmt.Errorf("%w: unknown action %q", errCacheDecode, serialized.Action)
	}

	slotIDs := make([]string, 0, len(serialized.New)+len(serialized.Canceled)+len(serialized.Moved))
	codes := make([]string, 0, len(serialized.Moved))
	for _, entry := range serialized.New {
		slotIDs = append(slotIDs, entry.ID)
	}
	for _, entry := range serialized.Canceled {
		slotIDs = append(slotIDs, entry.ID)
	}
	for _, entry := range serialized.Moved {
		if entry.NewSlotID != "" {
			slotIDs = append(slotIDs, entry.NewSlotID)
		}
		if entry.SubmissionCode != "" {
			codes = append(codes, entry.SubmissionCode)
		}
	}

	var slots map[string]persistence.ScheduledSlot
	if len(slotIDs) > 0 {
		var err error
		slots, err = s.store.SlotsByID(ctx, slotIDs)
		if err != nil {
			return DiffResult{}, mapStoreError(err)
		}
	}
	var submissions map[string]persistence.Submission
	if len(codes) > 0 {
		var err error
		submissions, err = s.store.SubmissionsByCode(ctx, eventID, codes)
		if err != nil {
			return DiffResult{}, mapStoreError(err)
		}
	}
	var rooms map[string]persistence.Room
	if len(serialized.Moved) > 0 {
		var err error
		rooms, err = s.store.Rooms(ctx, eventID)
		if err != nil {
			return DiffResult{}, mapStoreError(err)
		}
	}

	result := DiffResult{
		Action: DiffAction(serialized.Action),
		Count:  serialized.Count,
	}
	for _, entry := range serialized.New {
		if slot, ok := slots[entry.ID]; ok {
			result.New = append(result.New, slot)
		}
	}
	for _, entry := range serialized.Canceled {
		if slot, ok := slots[entry.ID]; ok {
			result.Canceled = append(result.Canceled, slot)
		}
	}
	for _, entry := range serialized.Moved {
		submission, ok := submissions[entry.SubmissionCode]
		if !ok {
			continue
		}
		move := MovedSlot{
			Submission: submission,
			OldStart:   entry.OldStart,
			NewStart:   entry.NewStart,
		}
		if entry.OldRoom != nil {
			if room, ok := rooms[*entry.OldRoom]; ok {
				move.OldRoom = &room
			}
		}
		if entry.NewRoom != nil {
			if room, ok := rooms[*entry.NewRoom]; ok {
				move.NewRoom = &room
			}
		}
		if slot, ok := slots[entry.NewSlotID]; ok {
			move.NewSlot = slot
		}
		result.Moved = append(result.Moved, move)
	}

	return result, nil
}
