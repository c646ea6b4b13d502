package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
)

type stubDirectory struct {
	schedules []persistence.Schedule
	err       error
	eventID   string
}

func (s *stubDirectory) ListSchedules(_ context.Context, eventID string) ([]persistence.Schedule, error) {
	s.eventID = eventID
	return s.schedules, s.err
}

type stubDiffs struct {
	diff       application.DiffResult
	err        error
	unreleased bool
	scheduleID string
}

func (s *stubDiffs) Changes(_ context.Context, scheduleID string) (application.DiffResult, error) {
	s.scheduleID = scheduleID
	return s.diff, s.err
}

func (s *stubDiffs) HasUnreleasedChanges(_ context.Context, _ string) (bool, error) {
	return s.unreleased, s.err
}

type stubConflicts struct {
	warnings     []application.SlotWarnings
	summary      application.SummaryWarnings
	err          error
	updatedSince *time.Time
}

func (s *stubConflicts) AllTalkWarnings(_ context.Context, _ string, updatedSince *time.Time) ([]application.SlotWarnings, error) {
	s.updatedSince = updatedSince
	return s.warnings, s.err
}

func (s *stubConflicts) SummaryWarnings(_ context.Context, _ string) (application.SummaryWarnings, error) {
	return s.summary, s.err
}

type stubReleases struct {
	freezeResult application.FreezeResult
	freezeErr    error
	freezeParams application.FreezeParams
	draft        persistence.Schedule
	unfreezeErr  error
	unfrozeID    string
}

func (s *stubReleases) Freeze(_ context.Context, params application.FreezeParams) (application.FreezeResult, error) {
	s.freezeParams = params
	return s.freezeResult, s.freezeErr
}

func (s *stubReleases) Unfreeze(_ context.Context, scheduleID string) (persistence.Schedule, error) {
	s.unfrozeID = scheduleID
	return s.draft, s.unfreezeErr
}

type handlerStubs struct {
	directory *stubDirectory
	diffs     *stubDiffs
	conflicts *stubConflicts
	releases  *stubReleases
}

func newTestRouter(stubs handlerStubs) http.Handler {
	if stubs.directory == nil {
		stubs.directory = &stubDirectory{}
	}
	if stubs.diffs == nil {
		stubs.diffs = &stubDiffs{}
	}
	if stubs.conflicts == nil {
		stubs.conflicts = &stubConflicts{}
	}
	if stubs.releases == nil {
		stubs.releases = &stubReleases{}
	}
	handler := NewScheduleHandler(stubs.directory, stubs.diffs, stubs.conflicts, stubs.releases, nil)
	return NewRouter(RouterConfig{Schedules: handler})
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func TestChangelogEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("lists schedule versions with the unreleased flag", func(t *testing.T) {
		t.Parallel()

		published := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		version := "v1"
		directory := &stubDirectory{schedules: []persistence.Schedule{
			{ID: "sched-draft", EventID: "democon", CreatedAt: published, UpdatedAt: published},
			{ID: "sched-v1", EventID: "democon", Version: &version, PublishedAt: &published, CreatedAt: published, UpdatedAt: published},
		}}
		diffs := &stubDiffs{unreleased: true}
		router := newTestRouter(handlerStubs{directory: directory, diffs: diffs})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/events/democon/schedules", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if directory.eventID != "democon" {
			t.Fatalf("expected event id from path, got %q", directory.eventID)
		}

		var payload changelogResponse
		decodeBody(t, recorder, &payload)
		if len(payload.Schedules) != 2 {
			t.Fatalf("expected 2 schedules, got %d", len(payload.Schedules))
		}
		if payload.Schedules[0].Version != nil {
			t.Fatalf("expected the draft first, got version %v", payload.Schedules[0].Version)
		}
		if payload.Schedules[1].PublishedAt == nil {
			t.Fatal("expected a published_at timestamp on the released version")
		}
		if !payload.HasUnreleasedChanges {
			t.Fatal("expected has_unreleased_changes to be true")
		}
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(handlerStubs{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/events/democon/schedules", nil))

		if recorder.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", recorder.Code)
		}
		if allow := recorder.Header().Get("Allow"); allow != http.MethodGet {
			t.Fatalf("expected Allow header %q, got %q", http.MethodGet, allow)
		}
	})
}

func TestChangesEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("serializes the diff payload", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
		end := start.Add(30 * time.Minute)
		diffs := &stubDiffs{diff: application.DiffResult{
			Action: application.DiffActionUpdate,
			Count:  2,
			New: []persistence.ScheduledSlot{{
				Slot:       persistence.Slot{ID: "slot-1", Start: &start, End: &end},
				Submission: &persistence.Submission{Code: "TALK1", Title: "Intro to Diffing"},
				Room:       &persistence.Room{Name: "Main Hall"},
			}},
			Moved: []application.MovedSlot{{
				Submission: persistence.Submission{Code: "TALK2", Title: "Moved Talk"},
				NewRoom:    &persistence.Room{Name: "Workshop Room"},
				OldStart:   start,
				NewStart:   start.Add(time.Hour),
				NewSlot:    persistence.ScheduledSlot{Slot: persistence.Slot{ID: "slot-2"}},
			}},
		}}
		router := newTestRouter(handlerStubs{diffs: diffs})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/sched-1/changes", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if diffs.scheduleID != "sched-1" {
			t.Fatalf("expected schedule id from path, got %q", diffs.scheduleID)
		}

		var payload diffDTO
		decodeBody(t, recorder, &payload)
		if payload.Action != "update" || payload.Count != 2 {
			t.Fatalf("unexpected diff header: %+v", payload)
		}
		if len(payload.NewTalks) != 1 || payload.NewTalks[0].SubmissionCode != "TALK1" || payload.NewTalks[0].Room != "Main Hall" {
			t.Fatalf("unexpected new talks: %+v", payload.NewTalks)
		}
		if len(payload.MovedTalks) != 1 || payload.MovedTalks[0].NewRoom != "Workshop Room" || payload.MovedTalks[0].NewSlotID != "slot-2" {
			t.Fatalf("unexpected moved talks: %+v", payload.MovedTalks)
		}
	})

	t.Run("maps unknown schedules to 404", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(handlerStubs{diffs: &stubDiffs{err: application.ErrNotFound}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/missing/changes", nil))

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", recorder.Code)
		}
	})
}

func TestWarningsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns per-talk warnings", func(t *testing.T) {
		t.Parallel()

		roomID := "room-1"
		conflicts := &stubConflicts{warnings: []application.SlotWarnings{{
			Slot: persistence.ScheduledSlot{
				Slot:       persistence.Slot{ID: "slot-1"},
				Submission: &persistence.Submission{Code: "TALK1", Title: "Crowded Talk"},
			},
			Warnings: []application.Warning{
				{Kind: application.WarningRoomOverlap, Message: "another talk runs in this room at the same time", RoomID: &roomID},
				{Kind: application.WarningSpeakerOverlap, Message: "speaker is double-booked", Speaker: &persistence.Speaker{Code: "SPK1", Name: "Sam Speaker"}},
			},
		}}}
		router := newTestRouter(handlerStubs{conflicts: conflicts})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/sched-1/warnings", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if conflicts.updatedSince != nil {
			t.Fatal("expected no updated_since filter without the query parameter")
		}

		var payload warningsResponse
		decodeBody(t, recorder, &payload)
		if len(payload.Talks) != 1 || len(payload.Talks[0].Warnings) != 2 {
			t.Fatalf("unexpected warnings payload: %+v", payload)
		}
		if payload.Talks[0].Warnings[0].RoomID == nil || *payload.Talks[0].Warnings[0].RoomID != roomID {
			t.Fatalf("expected room id on overlap warning, got %+v", payload.Talks[0].Warnings[0])
		}
		if payload.Talks[0].Warnings[1].SpeakerCode != "SPK1" {
			t.Fatalf("expected speaker code on speaker warning, got %+v", payload.Talks[0].Warnings[1])
		}
	})

	t.Run("parses the updated_since query parameter", func(t *testing.T) {
		t.Parallel()

		conflicts := &stubConflicts{}
		router := newTestRouter(handlerStubs{conflicts: conflicts})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/sched-1/warnings?updated_since=2026-05-01T10:00:00Z", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", recorder.Code)
		}
		want := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		if conflicts.updatedSince == nil || !conflicts.updatedSince.Equal(want) {
			t.Fatalf("expected updated_since %s, got %v", want, conflicts.updatedSince)
		}
	})

	t.Run("rejects malformed updated_since values", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(handlerStubs{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/sched-1/warnings?updated_since=yesterday", nil))

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("serves the release summary", func(t *testing.T) {
		t.Parallel()

		conflicts := &stubConflicts{summary: application.SummaryWarnings{
			UnscheduledCount: 3,
			UnconfirmedCount: 1,
			NoTrack:          []persistence.Submission{{Code: "NTR1", Title: "Trackless"}},
		}}
		router := newTestRouter(handlerStubs{conflicts: conflicts})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/schedules/sched-1/warnings/summary", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}

		var payload summaryResponse
		decodeBody(t, recorder, &payload)
		if payload.UnscheduledCount != 3 || payload.UnconfirmedCount != 1 {
			t.Fatalf("unexpected summary counts: %+v", payload)
		}
		if len(payload.TalksWithoutTrack) != 1 || payload.TalksWithoutTrack[0].Code != "NTR1" {
			t.Fatalf("unexpected trackless talks: %+v", payload.TalksWithoutTrack)
		}
	})
}

func TestFreezeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("releases the draft and returns the new pair", func(t *testing.T) {
		t.Parallel()

		published := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		version := "v1"
		releases := &stubReleases{freezeResult: application.FreezeResult{
			Published: persistence.Schedule{ID: "sched-1", EventID: "democon", Version: &version, PublishedAt: &published, CreatedAt: published, UpdatedAt: published},
			Draft:     persistence.Schedule{ID: "sched-2", EventID: "democon", CreatedAt: published, UpdatedAt: published},
			Notifications: application.NotificationManifest{
				"SPK1": {
					Speaker:     persistence.Speaker{Code: "SPK1", Name: "Sam Speaker"},
					Created:     []persistence.ScheduledSlot{{Slot: persistence.Slot{ID: "slot-1"}}},
					Attachments: []application.Attachment{{Name: "democon-talk1.ics", ContentType: "text/calendar"}},
				},
			},
		}}
		router := newTestRouter(handlerStubs{releases: releases})

		body := strings.NewReader(`{"version":"v1","comment":"first release","notify_speakers":true}`)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/schedules/sched-1/freeze", body))

		if recorder.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if releases.freezeParams.ScheduleID != "sched-1" || releases.freezeParams.Version != "v1" {
			t.Fatalf("unexpected freeze params: %+v", releases.freezeParams)
		}
		if !releases.freezeParams.NotifySpeakers {
			t.Fatal("expected notify_speakers to be forwarded")
		}

		var payload freezeResponse
		decodeBody(t, recorder, &payload)
		if payload.Published.Version == nil || *payload.Published.Version != "v1" {
			t.Fatalf("unexpected published schedule: %+v", payload.Published)
		}
		if payload.Draft.Version != nil {
			t.Fatalf("expected the new draft to be unversioned, got %+v", payload.Draft)
		}
		if len(payload.Notifications) != 1 || payload.Notifications[0].SpeakerCode != "SPK1" {
			t.Fatalf("unexpected notifications: %+v", payload.Notifications)
		}
		if len(payload.Notifications[0].Attachments) != 1 || payload.Notifications[0].Attachments[0] != "democon-talk1.ics" {
			t.Fatalf("unexpected attachments: %+v", payload.Notifications[0].Attachments)
		}
	})

	t.Run("rejects malformed request bodies", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(handlerStubs{})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/schedules/sched-1/freeze", strings.NewReader("{not json")))

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", recorder.Code)
		}
	})

	t.Run("maps release errors to status codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name          string
			err           error
			wantStatus    int
			wantErrorCode string
		}{
			{"duplicate version", application.ErrDuplicateVersion, http.StatusConflict, "VERSION_EXISTS"},
			{"already released", application.ErrAlreadyVersioned, http.StatusConflict, "ALREADY_RELEASED"},
			{"invalid version name", application.ErrInvalidVersionName, http.StatusUnprocessableEntity, "INVALID_VERSION"},
			{"unknown schedule", application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				router := newTestRouter(handlerStubs{releases: &stubReleases{freezeErr: tc.err}})
				recorder := httptest.NewRecorder()
				body := strings.NewReader(`{"version":"v1"}`)
				router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/schedules/sched-1/freeze", body))

				if recorder.Code != tc.wantStatus {
					t.Fatalf("expected %d, got %d", tc.wantStatus, recorder.Code)
				}
				var payload errorResponse
				decodeBody(t, recorder, &payload)
				if payload.ErrorCode != tc.wantErrorCode {
					t.Fatalf("expected error code %q, got %q", tc.wantErrorCode, payload.ErrorCode)
				}
			})
		}
	})
}

func TestUnfreezeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("reopens a released version as the draft", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC)
		releases := &stubReleases{draft: persistence.Schedule{ID: "sched-3", EventID: "democon", CreatedAt: now, UpdatedAt: now}}
		router := newTestRouter(handlerStubs{releases: releases})

		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/schedules/sched-1/unfreeze", nil))

		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", recorder.Code, recorder.Body.String())
		}
		if releases.unfrozeID != "sched-1" {
			t.Fatalf("expected schedule id from path, got %q", releases.unfrozeID)
		}

		var payload unfreezeResponse
		decodeBody(t, recorder, &payload)
		if payload.Draft.ID != "sched-3" || payload.Draft.Version != nil {
			t.Fatalf("unexpected draft payload: %+v", payload.Draft)
		}
	})

	t.Run("rejects drafts with 422", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(handlerStubs{releases: &stubReleases{unfreezeErr: application.ErrNotVersioned}})
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/schedules/sched-1/unfreeze", nil))

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", recorder.Code)
		}
	})
}

func TestRouterUnknownPaths(t *testing.T) {
	t.Parallel()

	router := newTestRouter(handlerStubs{})

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown schedule action", http.MethodGet, "/schedules/sched-1/history"},
		{"missing schedule id", http.MethodGet, "/schedules/"},
		{"event path without schedules segment", http.MethodGet, "/events/democon/rooms"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.path, nil))
			if recorder.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", recorder.Code)
			}
		})
	}
}
