package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
)

type diffService interface {
	Changes(ctx context.Context, scheduleID string) (application.DiffResult, error)
	HasUnreleasedChanges(ctx context.Context, eventID string) (bool, error)
}

type conflictService interface {
	AllTalkWarnings(ctx context.Context, scheduleID string, updatedSince *time.Time) ([]application.SlotWarnings, error)
	SummaryWarnings(ctx context.Context, scheduleID string) (application.SummaryWarnings, error)
}

type releaseService interface {
	Freeze(ctx context.Context, params application.FreezeParams) (application.FreezeResult, error)
	Unfreeze(ctx context.Context, scheduleID string) (persistence.Schedule, error)
}

type scheduleDirectory interface {
	ListSchedules(ctx context.Context, eventID string) ([]persistence.Schedule, error)
}

type ScheduleHandler struct {
	directory scheduleDirectory
	diffs     diffService
	conflicts conflictService
	releases  releaseService
	responder responder
}

func NewScheduleHandler(directory scheduleDirectory, diffs diffService, conflicts conflictService, releases releaseService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		directory: directory,
		diffs:     diffs,
		conflicts: conflicts,
		releases:  releases,
		responder: newResponder(logger),
	}
}

// Changelog lists every schedule version of an event, newest release first
// with the draft on top, and flags whether the draft differs from the latest
// release.
func (h *ScheduleHandler) Changelog(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.directory == nil || h.diffs == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	schedules, err := h.directory.ListSchedules(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	unreleased, err := h.diffs.HasUnreleasedChanges(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, changelogResponse{
		Schedules:            toScheduleDTOs(schedules),
		HasUnreleasedChanges: unreleased,
	})
}

// Changes returns the diff between a schedule and the release preceding it.
func (h *ScheduleHandler) Changes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.diffs == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	diff, err := h.diffs.Changes(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDiffDTO(diff))
}

// Warnings returns per-talk conflict warnings for every fully scheduled slot.
// An optional updated_since query parameter restricts the check to slots
// touched after the given time.
func (h *ScheduleHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conflicts == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var updatedSince *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("updated_since")); raw != "" {
		ts := parseTime(raw)
		if ts.IsZero() {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		updatedSince = &ts
	}

	warnings, err := h.conflicts.AllTalkWarnings(r.Context(), scheduleID, updatedSince)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, warningsResponse{
		Talks: toSlotWarningsDTOs(warnings),
	})
}

// Summary returns the event-wide issues organisers review before a release.
func (h *ScheduleHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.conflicts == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	summary, err := h.conflicts.SummaryWarnings(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{
		TalkWarnings:      toSlotWarningsDTOs(summary.TalkWarnings),
		UnscheduledCount:  summary.UnscheduledCount,
		UnconfirmedCount:  summary.UnconfirmedCount,
		TalksWithoutTrack: toTalkDTOs(summary.NoTrack),
	})
}

// Freeze releases the draft schedule under the requested version name.
func (h *ScheduleHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.releases == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req freezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.releases.Freeze(r.Context(), application.FreezeParams{
		ScheduleID:     scheduleID,
		Version:        req.Version,
		Comment:        strings.TrimSpace(req.Comment),
		NotifySpeakers: req.NotifySpeakers,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "schedule_handler", "freeze",
		"schedule_id", scheduleID, "version", req.Version).
		InfoContext(r.Context(), "schedule version released")

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, freezeResponse{
		Published:     toScheduleDTO(result.Published),
		Draft:         toScheduleDTO(result.Draft),
		Notifications: toNotificationDTOs(result.Notifications),
	})
}

// Unfreeze reopens a released version as the event's draft schedule.
func (h *ScheduleHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.releases == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scheduleID, ok := ScheduleIDFromContext(r.Context())
	if !ok || strings.TrimSpace(scheduleID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	draft, err := h.releases.Unfreeze(r.Context(), scheduleID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.responder.logger, "schedule_handler", "unfreeze",
		"schedule_id", scheduleID, "draft_id", draft.ID).
		InfoContext(r.Context(), "schedule version reopened")

	h.responder.writeJSON(r.Context(), w, http.StatusOK, unfreezeResponse{
		Draft: toScheduleDTO(draft),
	})
}

type freezeRequest struct {
	Version        string `json:"version"`
	Comment        string `json:"comment"`
	NotifySpeakers bool   `json:"notify_speakers"`
}

type changelogResponse struct {
	Schedules            []scheduleDTO `json:"schedules"`
	HasUnreleasedChanges bool          `json:"has_unreleased_changes"`
}

type freezeResponse struct {
	Published     scheduleDTO       `json:"published"`
	Draft         scheduleDTO       `json:"draft"`
	Notifications []notificationDTO `json:"notifications,omitempty"`
}

type unfreezeResponse struct {
	Draft scheduleDTO `json:"draft"`
}

type warningsResponse struct {
	Talks []slotWarningsDTO `json:"talks"`
}

type summaryResponse struct {
	TalkWarnings      []slotWarningsDTO `json:"talk_warnings"`
	UnscheduledCount  int               `json:"unscheduled_count"`
	UnconfirmedCount  int               `json:"unconfirmed_count"`
	TalksWithoutTrack []talkDTO         `json:"talks_without_track,omitempty"`
}

type scheduleDTO struct {
	ID          string  `json:"id"`
	EventID     string  `json:"event_id"`
	Version     *string `json:"version"`
	Comment     string  `json:"comment,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toScheduleDTO(schedule persistence.Schedule) scheduleDTO {
	dto := scheduleDTO{
		ID:        schedule.ID,
		EventID:   schedule.EventID,
		Version:   schedule.Version,
		Comment:   schedule.Comment,
		CreatedAt: schedule.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: schedule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if schedule.PublishedAt != nil {
		published := schedule.PublishedAt.UTC().Format(time.RFC3339Nano)
		dto.PublishedAt = &published
	}
	return dto
}

func toScheduleDTOs(schedules []persistence.Schedule) []scheduleDTO {
	if len(schedules) == 0 {
		return nil
	}
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return out
}

type diffDTO struct {
	Action        string     `json:"action"`
	Count         int        `json:"count"`
	NewTalks      []slotDTO  `json:"new_talks,omitempty"`
	CanceledTalks []slotDTO  `json:"canceled_talks,omitempty"`
	MovedTalks    []movedDTO `json:"moved_talks,omitempty"`
}

func toDiffDTO(diff application.DiffResult) diffDTO {
	return diffDTO{
		Action:        string(diff.Action),
		Count:         diff.Count,
		NewTalks:      toSlotDTOs(diff.New),
		CanceledTalks: toSlotDTOs(diff.Canceled),
		MovedTalks:    toMovedDTOs(diff.Moved),
	}
}

type slotDTO struct {
	ID             string  `json:"id"`
	SubmissionCode string  `json:"submission_code,omitempty"`
	Title          string  `json:"title,omitempty"`
	Room           string  `json:"room,omitempty"`
	Start          *string `json:"start,omitempty"`
	End            *string `json:"end,omitempty"`
}

func toSlotDTO(slot persistence.ScheduledSlot) slotDTO {
	dto := slotDTO{
		ID:    slot.Slot.ID,
		Start: formatTimePtr(slot.Slot.Start),
		End:   formatTimePtr(slot.Slot.End),
	}
	if slot.Submission != nil {
		dto.SubmissionCode = slot.Submission.Code
		dto.Title = slot.Submission.Title
	}
	if slot.Room != nil {
		dto.Room = slot.Room.Name
	}
	return dto
}

func toSlotDTOs(slots []persistence.ScheduledSlot) []slotDTO {
	if len(slots) == 0 {
		return nil
	}
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

type movedDTO struct {
	SubmissionCode string `json:"submission_code"`
	Title          string `json:"title"`
	OldRoom        string `json:"old_room,omitempty"`
	NewRoom        string `json:"new_room,omitempty"`
	OldStart       string `json:"old_start"`
	NewStart       string `json:"new_start"`
	NewSlotID      string `json:"new_slot_id"`
}

func toMovedDTOs(moved []application.MovedSlot) []movedDTO {
	if len(moved) == 0 {
		return nil
	}
	out := make([]movedDTO, 0, len(moved))
	for _, move := range moved {
		dto := movedDTO{
			SubmissionCode: move.Submission.Code,
			Title:          move.Submission.Title,
			OldStart:       move.OldStart.UTC().Format(time.RFC3339Nano),
			NewStart:       move.NewStart.UTC().Format(time.RFC3339Nano),
			NewSlotID:      move.NewSlot.Slot.ID,
		}
		if move.OldRoom != nil {
			dto.OldRoom = move.OldRoom.Name
		}
		if move.NewRoom != nil {
			dto.NewRoom = move.NewRoom.Name
		}
		out = append(out, dto)
	}
	return out
}

type warningDTO struct {
	Kind        string  `json:"kind"`
	Message     string  `json:"message"`
	RoomID      *string `json:"room_id,omitempty"`
	SpeakerCode string  `json:"speaker_code,omitempty"`
	SpeakerName string  `json:"speaker_name,omitempty"`
}

type slotWarningsDTO struct {
	Slot     slotDTO      `json:"slot"`
	Warnings []warningDTO `json:"warnings"`
}

func toSlotWarningsDTOs(warnings []application.SlotWarnings) []slotWarningsDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]slotWarningsDTO, 0, len(warnings))
	for _, entry := range warnings {
		dto := slotWarningsDTO{
			Slot:     toSlotDTO(entry.Slot),
			Warnings: make([]warningDTO, 0, len(entry.Warnings)),
		}
		for _, warning := range entry.Warnings {
			wDTO := warningDTO{
				Kind:    string(warning.Kind),
				Message: warning.Message,
				RoomID:  warning.RoomID,
			}
			if warning.Speaker != nil {
				wDTO.SpeakerCode = warning.Speaker.Code
				wDTO.SpeakerName = warning.Speaker.Name
			}
			dto.Warnings = append(dto.Warnings, wDTO)
		}
		out = append(out, dto)
	}
	return out
}

type talkDTO struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

func toTalkDTOs(submissions []persistence.Submission) []talkDTO {
	if len(submissions) == 0 {
		return nil
	}
	out := make([]talkDTO, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, talkDTO{Code: submission.Code, Title: submission.Title})
	}
	return out
}

type notificationDTO struct {
	SpeakerCode string   `json:"speaker_code"`
	SpeakerName string   `json:"speaker_name"`
	NewTalks    int      `json:"new_talks"`
	MovedTalks  int      `json:"moved_talks"`
	Attachments []string `json:"attachments,omitempty"`
}

func toNotificationDTOs(manifest application.NotificationManifest) []notificationDTO {
	if len(manifest) == 0 {
		return nil
	}
	out := make([]notificationDTO, 0, len(manifest))
	for code, plan := range manifest {
		dto := notificationDTO{
			SpeakerCode: code,
			SpeakerName: plan.Speaker.Name,
			NewTalks:    len(plan.Created),
			MovedTalks:  len(plan.Updated),
		}
		for _, attachment := range plan.Attachments {
			dto.Attachments = append(dto.Attachments, attachment.Name)
		}
		out = append(out, dto)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeakerCode < out[j].SpeakerCode })
	return out
}

func formatTimePtr(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	formatted := ts.UTC().Format(time.RFC3339Nano)
	return &formatted
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
