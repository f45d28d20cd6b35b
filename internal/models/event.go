package models

import "time"

// EventType names a change pushed to slot stream subscribers.
type EventType string

const (
	EventSessionBooked       EventType = "session.booked"
	EventSessionCompleted    EventType = "session.completed"
	EventSessionLinkUpdated  EventType = "session.link_updated"
	EventAvailabilityUpdated EventType = "availability.updated"
)

// BookingEvent tells a mentor's subscribers that their free slots, or one of
// their sessions, changed. Date is empty for template updates, which affect
// every date.
type BookingEvent struct {
	Type       EventType  `json:"type"`
	MentorID   string     `json:"mentorId"`
	Date       string     `json:"date,omitempty"`
	SessionID  string     `json:"sessionId,omitempty"`
	StartTime  *TimeOfDay `json:"startTime,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}
