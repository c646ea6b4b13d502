package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/conference-scheduler/internal/application"
	"github.com/example/conference-scheduler/internal/persistence"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method works
// inside and outside of Atomic.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage implements the application store contract on SQLite. Timestamps
// are stored as RFC 3339 UTC strings, which compare correctly as text.
type Storage struct {
	pool *ConnectionPool
	db   dbtx
	inTx bool
}

var _ application.Store = (*Storage)(nil)

// NewStorage returns a store backed by the given connection pool.
func NewStorage(pool *ConnectionPool) *Storage {
	return &Storage{pool: pool, db: pool.DB()}
}

// Atomic runs fn against a transaction-bound store. Nested calls reuse the
// surrounding transaction.
func (s *Storage) Atomic(ctx context.Context, fn func(application.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&Storage{pool: s.pool, db: tx, inTx: true})
	})
}

// --- time encoding ---

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(value, column string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: failed to parse %s: %w", column, err)
	}
	return parsed, nil
}

func parseNullTime(value sql.NullString, column string) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(value.String, column)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	copied := value.String
	return &copied
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// --- schedules ---

const scheduleColumns = "id, event_id, version, comment, published_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (persistence.Schedule, error) {
	var schedule persistence.Schedule
	var version, publishedAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&schedule.ID, &schedule.EventID, &version, &schedule.Comment, &publishedAt, &createdAt, &updatedAt); err != nil {
		return persistence.Schedule{}, err
	}

	schedule.Version = stringPtr(version)
	published, err := parseNullTime(publishedAt, "published_at")
	if err != nil {
		return persistence.Schedule{}, err
	}
	schedule.PublishedAt = published
	if schedule.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Schedule{}, err
	}
	if schedule.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Schedule{}, err
	}
	return schedule, nil
}

func (s *Storage) GetSchedule(ctx context.Context, scheduleID string) (persistence.Schedule, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", scheduleID)
	schedule, err := scanSchedule(row)
	if err != nil {
		return persistence.Schedule{}, mapError(err)
	}
	return schedule, nil
}

func (s *Storage) DraftSchedule(ctx context.Context, eventID string) (persistence.Schedule, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE event_id = ? AND version IS NULL", eventID)
	schedule, err := scanSchedule(row)
	if err != nil {
		return persistence.Schedule{}, mapError(err)
	}
	return schedule, nil
}

func (s *Storage) ListSchedules(ctx context.Context, eventID string) ([]persistence.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE event_id = ?
		ORDER BY CASE WHEN version IS NULL THEN 0 ELSE 1 END, published_at DESC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var schedules []persistence.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, mapError(err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return schedules, nil
}

func (s *Storage) LatestPublishedBefore(ctx context.Context, eventID string, before *time.Time, excludeID string) (*persistence.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + ` FROM schedules
		WHERE event_id = ? AND id != ? AND version IS NOT NULL AND published_at IS NOT NULL`
	args := []any{eventID, excludeID}
	if before != nil {
		query += " AND published_at < ?"
		args = append(args, formatTime(*before))
	}
	query += " ORDER BY published_at DESC LIMIT 1"

	row := s.db.QueryRowContext(ctx, query, args...)
	schedule, err := scanSchedule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapError(err)
	}
	return &schedule, nil
}

func (s *Storage) VersionExists(ctx context.Context, eventID, version string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM schedules WHERE event_id = ? AND version IS NOT NULL AND lower(version) = lower(?)",
		eventID, version).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

func (s *Storage) CreateSchedule(ctx context.Context, schedule persistence.Schedule) (persistence.Schedule, error) {
	if schedule.ID == "" {
		return persistence.Schedule{}, persistence.ErrConstraintViolation
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	if schedule.UpdatedAt.IsZero() {
		schedule.UpdatedAt = schedule.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, event_id, version, comment, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID,
		schedule.EventID,
		nullString(schedule.Version),
		schedule.Comment,
		formatNullTime(schedule.PublishedAt),
		formatTime(schedule.CreatedAt),
		formatTime(schedule.UpdatedAt),
	)
	if err != nil {
		return persistence.Schedule{}, mapError(err)
	}
	return schedule, nil
}

func (s *Storage) MarkScheduleReleased(ctx context.Context, scheduleID, version, comment string, publishedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET version = ?, comment = ?, published_at = ?, updated_at = ?
		WHERE id = ? AND version IS NULL`,
		version, comment, formatTime(publishedAt), formatTime(publishedAt), scheduleID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteSchedule(ctx context.Context, scheduleID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", scheduleID)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// --- slots ---

const slotJoinQuery = `
	SELECT
		sl.id, sl.schedule_id, sl.submission_id, sl.room_id,
		sl.start_time, sl.end_time, sl.is_visible, sl.description,
		sl.created_at, sl.updated_at,
		sub.id, sub.event_id, sub.code, sub.title, sub.state, sub.track_id,
		sub.created_at, sub.updated_at,
		r.id, r.event_id, r.name, r.position, r.created_at, r.updated_at
	FROM slots sl
	LEFT JOIN submissions sub ON sub.id = sl.submission_id
	LEFT JOIN rooms r ON r.id = sl.room_id`

func (s *Storage) scanJoinedSlot(rows *sql.Rows) (persistence.ScheduledSlot, error) {
	var joined persistence.ScheduledSlot
	var slot persistence.Slot
	var submissionID, roomID, startTime, endTime sql.NullString
	var slotCreated, slotUpdated string

	var subID, subEvent, subCode, subTitle, subState, subTrack sql.NullString
	var subCreated, subUpdated sql.NullString
	var rID, rEvent, rName sql.NullString
	var rPosition sql.NullInt64
	var rCreated, rUpdated sql.NullString

	err := rows.Scan(
		&slot.ID, &slot.ScheduleID, &submissionID, &roomID,
		&startTime, &endTime, &slot.IsVisible, &slot.Description,
		&slotCreated, &slotUpdated,
		&subID, &subEvent, &subCode, &subTitle, &subState, &subTrack,
		&subCreated, &subUpdated,
		&rID, &rEvent, &rName, &rPosition, &rCreated, &rUpdated,
	)
	if err != nil {
		return joined, err
	}

	slot.SubmissionID = stringPtr(submissionID)
	slot.RoomID = stringPtr(roomID)
	if slot.Start, err = parseNullTime(startTime, "start_time"); err != nil {
		return joined, err
	}
	if slot.End, err = parseNullTime(endTime, "end_time"); err != nil {
		return joined, err
	}
	if slot.CreatedAt, err = parseTime(slotCreated, "created_at"); err != nil {
		return joined, err
	}
	if slot.UpdatedAt, err = parseTime(slotUpdated, "updated_at"); err != nil {
		return joined, err
	}
	joined.Slot = slot

	if subID.Valid {
		submission := persistence.Submission{
			ID:      subID.String,
			EventID: subEvent.String,
			Code:    subCode.String,
			Title:   subTitle.String,
			State:   subState.String,
			TrackID: stringPtr(subTrack),
		}
		if submission.CreatedAt, err = parseTime(subCreated.String, "submissions.created_at"); err != nil {
			return joined, err
		}
		if submission.UpdatedAt, err = parseTime(subUpdated.String, "submissions.updated_at"); err != nil {
			return joined, err
		}
		joined.Submission = &submission
	}

	if rID.Valid {
		room := persistence.Room{
			ID:       rID.String,
			EventID:  rEvent.String,
			Name:     rName.String,
			Position: int(rPosition.Int64),
		}
		if room.CreatedAt, err = parseTime(rCreated.String, "rooms.created_at"); err != nil {
			return joined, err
		}
		if room.UpdatedAt, err = parseTime(rUpdated.String, "rooms.updated_at"); err != nil {
			return joined, err
		}
		joined.Room = &room
	}

	return joined, nil
}

func (s *Storage) querySlots(ctx context.Context, query string, args ...any) ([]persistence.ScheduledSlot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var slots []persistence.ScheduledSlot
	for rows.Next() {
		slot, err := s.scanJoinedSlot(rows)
		if err != nil {
			return nil, mapError(err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	if err := s.attachSpeakers(ctx, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// attachSpeakers bulk-loads the speakers of every joined submission.
func (s *Storage) attachSpeakers(ctx context.Context, slots []persistence.ScheduledSlot) error {
	ids := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if slot.Submission == nil {
			continue
		}
		if _, ok := seen[slot.Submission.ID]; ok {
			continue
		}
		seen[slot.Submission.ID] = struct{}{}
		ids = append(ids, slot.Submission.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	speakers, err := s.loadSpeakers(ctx, ids)
	if err != nil {
		return err
	}
	for i := range slots {
		if slots[i].Submission != nil {
			slots[i].Submission.Speakers = speakers[slots[i].Submission.ID]
		}
	}
	return nil
}

func (s *Storage) loadSpeakers(ctx context.Context, submissionIDs []string) (map[string][]persistence.Speaker, error) {
	args := make([]any, len(submissionIDs))
	for i, id := range submissionIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ss.submission_id, sp.id, sp.code, sp.name
		FROM submission_speakers ss
		JOIN speakers sp ON sp.id = ss.speaker_id
		WHERE ss.submission_id IN (`+placeholders(len(submissionIDs))+`)
		ORDER BY ss.submission_id, ss.position, sp.code`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := make(map[string][]persistence.Speaker)
	for rows.Next() {
		var submissionID string
		var speaker persistence.Speaker
		if err := rows.Scan(&submissionID, &speaker.ID, &speaker.Code, &speaker.Name); err != nil {
			return nil, mapError(err)
		}
		result[submissionID] = append(result[submissionID], speaker)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (s *Storage) ListSlots(ctx context.Context, scheduleID string) ([]persistence.ScheduledSlot, error) {
	return s.querySlots(ctx, slotJoinQuery+`
		WHERE sl.schedule_id = ?
		ORDER BY sl.start_time IS NULL, sl.start_time, sl.id`, scheduleID)
}

func (s *Storage) ListScheduledSlots(ctx context.Context, scheduleID string) ([]persistence.ScheduledSlot, error) {
	return s.querySlots(ctx, slotJoinQuery+`
		WHERE sl.schedule_id = ?
			AND sl.room_id IS NOT NULL
			AND sl.start_time IS NOT NULL
			AND sl.is_visible = 1
			AND sub.id IS NOT NULL
			AND sub.state != ?
		ORDER BY sl.start_time, sl.id`, scheduleID, persistence.StateDeleted)
}

func (s *Storage) SlotsByID(ctx context.Context, ids []string) (map[string]persistence.ScheduledSlot, error) {
	if len(ids) == 0 {
		return map[string]persistence.ScheduledSlot{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	slots, err := s.querySlots(ctx, slotJoinQuery+
		" WHERE sl.id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, err
	}
	result := make(map[string]persistence.ScheduledSlot, len(slots))
	for _, slot := range slots {
		result[slot.Slot.ID] = slot
	}
	return result, nil
}

func (s *Storage) BulkCreateSlots(ctx context.Context, slots []persistence.Slot) error {
	for _, slot := range slots {
		if slot.ID == "" {
			return persistence.ErrConstraintViolation
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO slots (id, schedule_id, submission_id, room_id, start_time, end_time, is_visible, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			slot.ID,
			slot.ScheduleID,
			nullString(slot.SubmissionID),
			nullString(slot.RoomID),
			formatNullTime(slot.Start),
			formatNullTime(slot.End),
			slot.IsVisible,
			slot.Description,
			formatTime(slot.CreatedAt),
			formatTime(slot.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (s *Storage) SetSlotVisibility(ctx context.Context, scheduleID string, visible bool) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE slots SET is_visible = ? WHERE schedule_id = ?", visible, scheduleID)
	return mapError(err)
}

func (s *Storage) ApplyReleaseVisibility(ctx context.Context, scheduleID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE slots SET is_visible = 1
		WHERE schedule_id = ?
			AND start_time IS NOT NULL
			AND (
				submission_id IS NULL
				OR submission_id IN (SELECT id FROM submissions WHERE state = ?)
			)`, scheduleID, persistence.StateConfirmed)
	return mapError(err)
}

func (s *Storage) DeleteSlotsForSchedule(ctx context.Context, scheduleID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE schedule_id = ?", scheduleID)
	return mapError(err)
}

// --- events, submissions, availabilities ---

func (s *Storage) GetEvent(ctx context.Context, eventID string) (persistence.Event, error) {
	var event persistence.Event
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, name, timezone, request_availabilities, use_tracks, created_at, updated_at
		FROM events WHERE id = ?`, eventID).Scan(
		&event.ID, &event.Slug, &event.Name, &event.Timezone,
		&event.RequestAvailabilities, &event.UseTracks, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	if event.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

func (s *Storage) Rooms(ctx context.Context, eventID string) (map[string]persistence.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, position, created_at, updated_at
		FROM rooms WHERE event_id = ? ORDER BY position, name`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	rooms := make(map[string]persistence.Room)
	for rows.Next() {
		var room persistence.Room
		var createdAt, updatedAt string
		if err := rows.Scan(&room.ID, &room.EventID, &room.Name, &room.Position, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		if room.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if room.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		rooms[room.ID] = room
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return rooms, nil
}

func (s *Storage) SubmissionsByCode(ctx context.Context, eventID string, codes []string) (map[string]persistence.Submission, error) {
	if len(codes) == 0 {
		return map[string]persistence.Submission{}, nil
	}
	args := []any{eventID}
	for _, code := range codes {
		args = append(args, code)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, code, title, state, track_id, created_at, updated_at
		FROM submissions WHERE event_id = ? AND code IN (`+placeholders(len(codes))+`)`, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	byCode := make(map[string]persistence.Submission)
	ids := make([]string, 0, len(codes))
	for rows.Next() {
		var submission persistence.Submission
		var trackID sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&submission.ID, &submission.EventID, &submission.Code, &submission.Title,
			&submission.State, &trackID, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		submission.TrackID = stringPtr(trackID)
		if submission.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if submission.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		byCode[submission.Code] = submission
		ids = append(ids, submission.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	if len(ids) > 0 {
		speakers, err := s.loadSpeakers(ctx, ids)
		if err != nil {
			return nil, err
		}
		for code, submission := range byCode {
			submission.Speakers = speakers[submission.ID]
			byCode[code] = submission
		}
	}
	return byCode, nil
}

func (s *Storage) RoomAvailabilities(ctx context.Context, eventID string) (map[string][]persistence.Availability, error) {
	return s.availabilitiesBySubject(ctx, eventID, "room_id")
}

func (s *Storage) SpeakerAvailabilities(ctx context.Context, eventID string) (map[string][]persistence.Availability, error) {
	return s.availabilitiesBySubject(ctx, eventID, "speaker_id")
}

func (s *Storage) availabilitiesBySubject(ctx context.Context, eventID, subjectColumn string) (map[string][]persistence.Availability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, room_id, speaker_id, start_time, end_time
		FROM availabilities
		WHERE event_id = ? AND `+subjectColumn+` IS NOT NULL
		ORDER BY start_time, id`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := make(map[string][]persistence.Availability)
	for rows.Next() {
		var availability persistence.Availability
		var roomID, speakerID sql.NullString
		var startTime, endTime string
		if err := rows.Scan(&availability.ID, &availability.EventID, &roomID, &speakerID, &startTime, &endTime); err != nil {
			return nil, mapError(err)
		}
		availability.RoomID = stringPtr(roomID)
		availability.SpeakerID = stringPtr(speakerID)
		if availability.Start, err = parseTime(startTime, "start_time"); err != nil {
			return nil, err
		}
		if availability.End, err = parseTime(endTime, "end_time"); err != nil {
			return nil, err
		}

		subject := ""
		if subjectColumn == "room_id" && availability.RoomID != nil {
			subject = *availability.RoomID
		} else if subjectColumn == "speaker_id" && availability.SpeakerID != nil {
			subject = *availability.SpeakerID
		}
		if subject != "" {
			result[subject] = append(result[subject], availability)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// --- seeding ---

func (s *Storage) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.Timezone == "" {
		event.Timezone = "UTC"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, slug, name, timezone, request_availabilities, use_tracks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Slug, event.Name, event.Timezone,
		event.RequestAvailabilities, event.UseTracks,
		formatTime(event.CreatedAt), formatTime(event.UpdatedAt))
	return mapError(err)
}

func (s *Storage) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = room.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, event_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		room.ID, room.EventID, room.Name, room.Position,
		formatTime(room.CreatedAt), formatTime(room.UpdatedAt))
	return mapError(err)
}

func (s *Storage) CreateSpeaker(ctx context.Context, speaker persistence.Speaker) error {
	if speaker.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO speakers (id, code, name) VALUES (?, ?, ?)",
		speaker.ID, speaker.Code, speaker.Name)
	return mapError(err)
}

// CreateSubmission stores a submission together with its speaker links.
// Speakers must exist already.
func (s *Storage) CreateSubmission(ctx context.Context, submission persistence.Submission) error {
	if submission.ID == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	if submission.UpdatedAt.IsZero() {
		submission.UpdatedAt = submission.CreatedAt
	}
	if submission.State == "" {
		submission.State = persistence.StateSubmitted
	}

	return s.Atomic(ctx, func(tx application.Store) error {
		storage := tx.(*Storage)
		_, err := storage.db.ExecContext(ctx, `
			INSERT INTO submissions (id, event_id, code, title, state, track_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			submission.ID, submission.EventID, submission.Code, submission.Title,
			submission.State, nullString(submission.TrackID),
			formatTime(submission.CreatedAt), formatTime(submission.UpdatedAt))
		if err != nil {
			return mapError(err)
		}
		for position, speaker := range submission.Speakers {
			_, err := storage.db.ExecContext(ctx,
				"INSERT INTO submission_speakers (submission_id, speaker_id, position) VALUES (?, ?, ?)",
				submission.ID, speaker.ID, position)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (s *Storage) CreateAvailability(ctx context.Context, availability persistence.Availability) error {
	if availability.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availabilities (id, event_id, room_id, speaker_id, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		availability.ID, availability.EventID,
		nullString(availability.RoomID), nullString(availability.SpeakerID),
		formatTime(availability.Start), formatTime(availability.End))
	return mapError(err)
}
