// Package ical renders scheduled slots as iCalendar documents. Release
// notifications attach one calendar file per affected slot so speakers can
// import their talks directly.
package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/example/conference-scheduler/internal/persistence"
)

const productID = "-//conference-scheduler//EN"

// RenderSlot serializes a single scheduled slot as a VCALENDAR document.
// Times are emitted in the event timezone when it resolves, UTC otherwise.
func RenderSlot(event persistence.Event, slot persistence.ScheduledSlot, now time.Time) ([]byte, error) {
	if slot.Slot.Start == nil || slot.Slot.End == nil {
		return nil, fmt.Errorf("ical: slot %s has no time range", slot.Slot.ID)
	}

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)

	loc := time.UTC
	if event.Timezone != "" {
		if parsed, err := time.LoadLocation(event.Timezone); err == nil {
			loc = parsed
		}
	}

	vevent := goical.NewComponent(goical.CompEvent)
	vevent.Props.SetText(goical.PropUID, slotUID(event, slot))
	vevent.Props.SetDateTime(goical.PropDateTimeStamp, now.UTC())
	vevent.Props.SetDateTime(goical.PropDateTimeStart, slot.Slot.Start.In(loc))
	vevent.Props.SetDateTime(goical.PropDateTimeEnd, slot.Slot.End.In(loc))
	vevent.Props.SetText(goical.PropSummary, slotSummary(slot))
	if slot.Room != nil {
		vevent.Props.SetText(goical.PropLocation, slot.Room.Name)
	}
	cal.Children = append(cal.Children, vevent)

	var buf bytes.Buffer
	if err := goical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("ical: failed to encode slot %s: %w", slot.Slot.ID, err)
	}
	return buf.Bytes(), nil
}

// FileName returns the attachment name for a slot's calendar file.
func FileName(event persistence.Event, slot persistence.ScheduledSlot) string {
	identifier := slot.Slot.ID
	if slot.Submission != nil && slot.Submission.Code != "" {
		identifier = strings.ToLower(slot.Submission.Code)
	}
	return fmt.Sprintf("%s-%s.ics", event.Slug, identifier)
}

func slotUID(event persistence.Event, slot persistence.ScheduledSlot) string {
	identifier := slot.Slot.ID
	if slot.Submission != nil && slot.Submission.Code != "" {
		identifier = slot.Submission.Code
	}
	return fmt.Sprintf("%s-%s@conference-scheduler", event.Slug, identifier)
}

func slotSummary(slot persistence.ScheduledSlot) string {
	if slot.Submission == nil {
		if slot.Slot.Description != "" {
			return slot.Slot.Description
		}
		return "Break"
	}
	names := make([]string, 0, len(slot.Submission.Speakers))
	for _, speaker := range slot.Submission.Speakers {
		names = append(names, speaker.Name)
	}
	if len(names) == 0 {
		return slot.Submission.Title
	}
	return fmt.Sprintf("%s - %s", slot.Submission.Title, strings.Join(names, ", "))
}
