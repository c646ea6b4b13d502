package testfixtures

import (
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/persistence"
)

func TestClock(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected reference time default, got %s", clock.Now())
	}

	advanced := clock.Advance(90 * time.Minute)
	if !advanced.Equal(ReferenceTime().Add(90 * time.Minute)) {
		t.Fatalf("unexpected advanced time: %s", advanced)
	}
	if !clock.Now().Equal(advanced) {
		t.Fatal("expected Now to track the advanced time")
	}

	explicit := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(explicit)
	if !clock.NowFunc()().Equal(explicit) {
		t.Fatalf("expected NowFunc to return %s, got %s", explicit, clock.NowFunc()())
	}
}

func TestIDGenerator(t *testing.T) {
	t.Parallel()

	gen := NewIDGenerator("talk")
	if got := gen.Next(); got != "talk-1" {
		t.Fatalf("expected talk-1, got %q", got)
	}
	if got := gen.NextFunc()(); got != "talk-2" {
		t.Fatalf("expected talk-2, got %q", got)
	}

	gen.SetCounter(41)
	if got := gen.Next(); got != "talk-42" {
		t.Fatalf("expected talk-42 after reset, got %q", got)
	}

	if got := NewIDGenerator("").Next(); got != "id-1" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}

func TestFixtureBuilders(t *testing.T) {
	t.Parallel()

	event := NewEvent(WithEventSlug("democon"), WithEventTimezone("Europe/Berlin"), WithRequestAvailabilities(), WithTracks())
	if event.Slug != "democon" || event.Timezone != "Europe/Berlin" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if !event.RequestAvailabilities || !event.UseTracks {
		t.Fatalf("expected feature flags set: %+v", event)
	}

	speaker := NewSpeaker()
	submission := NewSubmission(event.ID,
		WithSubmissionCode("KEY1"),
		WithSubmissionState(persistence.StateAccepted),
		WithSubmissionTrack("track-1"),
		WithSubmissionSpeakers(speaker),
	)
	if submission.EventID != event.ID || submission.Code != "KEY1" {
		t.Fatalf("unexpected submission: %+v", submission)
	}
	if submission.State != persistence.StateAccepted {
		t.Fatalf("expected accepted state, got %q", submission.State)
	}
	if submission.TrackID == nil || *submission.TrackID != "track-1" {
		t.Fatalf("expected track on submission, got %+v", submission.TrackID)
	}
	if len(submission.Speakers) != 1 || submission.Speakers[0].Code != speaker.Code {
		t.Fatalf("expected speaker attached, got %+v", submission.Speakers)
	}

	draft := NewDraftSchedule(event.ID)
	if !draft.IsDraft() {
		t.Fatalf("expected a draft schedule, got %+v", draft)
	}

	released := NewReleasedSchedule(event.ID, "v1", WithScheduleComment("first"))
	if released.IsDraft() || released.Version == nil || *released.Version != "v1" {
		t.Fatalf("expected released v1, got %+v", released)
	}
	if released.PublishedAt == nil {
		t.Fatal("expected a publication timestamp on the release")
	}

	room := NewRoom(event.ID, WithRoomName("Main Hall"))
	slot := NewSlot(draft.ID,
		WithSlotSubmission(submission.ID),
		WithSlotRoom(room.ID),
		WithSlotVisible(),
	)
	if slot.ScheduleID != draft.ID || slot.SubmissionID == nil || *slot.SubmissionID != submission.ID {
		t.Fatalf("unexpected slot: %+v", slot)
	}
	if slot.Start == nil || slot.End == nil || !slot.End.After(*slot.Start) {
		t.Fatalf("expected a bounded time range, got %+v", slot)
	}

	unplaced := NewSlot(draft.ID, WithSlotSubmission(submission.ID), WithSlotUnscheduled())
	if unplaced.RoomID != nil || unplaced.Start != nil || unplaced.End != nil {
		t.Fatalf("expected an unscheduled slot, got %+v", unplaced)
	}

	lunch := NewSlot(draft.ID, WithSlotDescription("Lunch"))
	if lunch.SubmissionID != nil || lunch.Description != "Lunch" {
		t.Fatalf("expected a break slot, got %+v", lunch)
	}
}
