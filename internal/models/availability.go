package models

import "time"

const (
	DefaultSlotDurationMinutes = 30
	MinSlotDurationMinutes     = 10
	MaxSlotDurationMinutes     = 60
)

// WeeklyWindow is a recurring block of availability on one day of the week
// (0 = Sunday). Times stay in their HH:mm wire form so a stored template with
// a malformed window still loads; such a window simply yields no slots.
type WeeklyWindow struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

// AvailabilityTemplate is a mentor's weekly schedule. Absence of a stored row
// is represented by DefaultTemplate, never by an error.
type AvailabilityTemplate struct {
	MentorID            string         `json:"mentorId"`
	SlotDurationMinutes int            `json:"slotDurationMinutes"`
	Windows             []WeeklyWindow `json:"windows"`
	CreatedAt           *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt           *time.Time     `json:"updatedAt,omitempty"`
}

// DefaultTemplate is what readers see for a mentor who never saved a template.
func DefaultTemplate(mentorID string) *AvailabilityTemplate {
	return &AvailabilityTemplate{
		MentorID:            mentorID,
		SlotDurationMinutes: DefaultSlotDurationMinutes,
		Windows:             []WeeklyWindow{},
	}
}

// UpdateAvailabilityRequest fully replaces the caller's template.
type UpdateAvailabilityRequest struct {
	SlotDurationMinutes int            `json:"slotDurationMinutes" validate:"min=10,max=60"`
	Windows             []WeeklyWindow `json:"windows" validate:"omitempty,max=100,dive"`
}

// Slot is a bookable candidate interval on a specific day.
type Slot struct {
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
}
