// Package http provides HTTP handlers and middleware for the schedule API.
//
// The router exposes the following endpoints:
//   - GET /events/{event}/schedules: lists every schedule version of an event,
//     draft first, then releases newest first, together with a
//     `has_unreleased_changes` flag comparing the draft against the latest
//     release.
//   - GET /schedules/{id}/changes: returns the diff between a schedule and the
//     release preceding it as the `diffDTO` payload defined in
//     schedule_handler.go.
//   - GET /schedules/{id}/warnings: returns per-talk conflict warnings for
//     fully scheduled slots. The optional `updated_since` query parameter
//     (RFC 3339) restricts the check to recently touched slots.
//   - GET /schedules/{id}/warnings/summary: returns the event-wide issues
//     reviewed before a release, including unscheduled and unconfirmed talk
//     counts.
//   - POST /schedules/{id}/freeze: releases the draft under a version name.
//     Body: {"version","comment","notify_speakers"}. Responds with the
//     released schedule, the freshly created draft and, when requested, the
//     planned speaker notifications.
//   - POST /schedules/{id}/unfreeze: reopens a released version as the
//     event's draft schedule.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
