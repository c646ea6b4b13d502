package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/conference-scheduler/internal/ical"
	"github.com/example/conference-scheduler/internal/persistence"
)

// NotificationPlanner turns a diff into the per-speaker manifest the
// external mail system consumes. The planner knows nothing about mail
// rendering or delivery.
type NotificationPlanner struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewNotificationPlanner wires dependencies for notification planning.
func NewNotificationPlanner(store Store, now func() time.Time) *NotificationPlanner {
	return NewNotificationPlannerWithLogger(store, now, nil)
}

// NewNotificationPlannerWithLogger wires notification planning with a base logger.
func NewNotificationPlannerWithLogger(store Store, now func() time.Time, logger *slog.Logger) *NotificationPlanner {
	if now == nil {
		now = time.Now
	}
	return &NotificationPlanner{store: store, now: now, logger: defaultLogger(logger)}
}

// SpeakersConcerned maps every affected speaker to the slots they should be
// notified about. For a first release every speaker with a visible, fully
// assigned slot is listed under Created; for updates the diff's new and
// moved entries are distributed per speaker. Cancellation-only diffs
// produce an empty manifest.
func (p *NotificationPlanner) SpeakersConcerned(ctx context.Context, schedule persistence.Schedule, diff DiffResult) (NotificationManifest, error) {
	if p == nil || p.store == nil {
		return nil, fmt.Errorf("NotificationPlanner is not configured")
	}
	logger := serviceLogger(ctx, p.logger, "notifications", "speakers_concerned", "schedule_id", schedule.ID)

	event, err := p.store.GetEvent(ctx, schedule.EventID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	manifest := make(NotificationManifest)

	if diff.Action == DiffActionCreate {
		slots, err := p.store.ListScheduledSlots(ctx, schedule.ID)
		if err != nil {
			return nil, mapStoreError(err)
		}
		for _, slot := range slots {
			for _, speaker := range slot.Submission.Speakers {
				plan := p.planFor(manifest, speaker)
				plan.Created = append(plan.Created, slot)
			}
		}
		p.attachCalendars(ctx, logger, event, manifest)
		return manifest, nil
	}

	if diff.Count == len(diff.Canceled) {
		return manifest, nil
	}

	for _, slot := range diff.New {
		if slot.Submission == nil {
			continue
		}
		for _, speaker := range slot.Submission.Speakers {
			plan := p.planFor(manifest, speaker)
			plan.Created = append(plan.Created, slot)
		}
	}
	for _, move := range diff.Moved {
		for _, speaker := range move.Submission.Speakers {
			plan := p.planFor(manifest, speaker)
			plan.Updated = append(plan.Updated, move)
		}
	}

	p.attachCalendars(ctx, logger, event, manifest)
	return manifest, nil
}

func (p *NotificationPlanner) planFor(manifest NotificationManifest, speaker persistence.Speaker) *SpeakerPlan {
	plan, ok := manifest[speaker.Code]
	if !ok {
		plan = &SpeakerPlan{Speaker: speaker}
		manifest[speaker.Code] = plan
	}
	return plan
}

// attachCalendars renders one calendar file per created or moved slot. A
// slot that fails to render is skipped; the notification itself still goes
// out.
func (p *NotificationPlanner) attachCalendars(ctx context.Context, logger *slog.Logger, event persistence.Event, manifest NotificationManifest) {
	now := p.now()
	for _, plan := range manifest {
		slots := make([]persistence.ScheduledSlot, 0, len(plan.Created)+len(plan.Updated))
		slots = append(slots, plan.Created...)
		for _, move := range plan.Updated {
			if move.NewSlot.Slot.ID != "" {
				slots = append(slots, move.NewSlot)
			}
		}
		for _, slot := range slots {
			content, err := ical.RenderSlot(event, slot, now)
			if err != nil {
				logger.WarnContext(ctx, "failed to render calendar attachment", "slot_id", slot.Slot.ID, "error", err)
				continue
			}
			plan.Attachments = append(plan.Attachments, Attachment{
				Name:        ical.FileName(event, slot),
				ContentType: "text/calendar",
				Content:     content,
			})
		}
	}
}
