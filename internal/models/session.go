package models

import "time"

// SessionStatus is the lifecycle state of a booking.
type SessionStatus string

const (
	SessionStatusBooked    SessionStatus = "booked"
	SessionStatusCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionStatusBooked || s == SessionStatusCompleted
}

// Session is a booked or completed 1:1 appointment. Sessions are never deleted.
type Session struct {
	ID          string        `db:"id" json:"id"`
	ProgramID   string        `db:"program_id" json:"programId"`
	MentorID    string        `db:"mentor_id" json:"mentorId"`
	StudentID   string        `db:"student_id" json:"studentId"`
	Date        time.Time     `db:"session_date" json:"date"`
	StartTime   TimeOfDay     `db:"start_time" json:"startTime"`
	EndTime     TimeOfDay     `db:"end_time" json:"endTime"`
	MeetingLink string        `db:"meeting_link" json:"meetingLink"`
	Status      SessionStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// IsParticipant reports whether userID is the session's mentor or student.
func (s *Session) IsParticipant(userID string) bool {
	return s != nil && userID != "" && (s.MentorID == userID || s.StudentID == userID)
}

// BookSessionRequest asks for one slot of a 1:1 program.
type BookSessionRequest struct {
	ProgramID string `json:"programId" validate:"required,max=64"`
	Date      string `json:"date" validate:"required,datestr"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

// UpdateMeetingLinkRequest sets or, when empty, clears the meeting link.
type UpdateMeetingLinkRequest struct {
	MeetingLink string `json:"meetingLink" validate:"omitempty,max=2048"`
}

// SessionFilter scopes a session listing to one participant.
type SessionFilter struct {
	UserID   string
	Role     UserRole
	Status   SessionStatus
	Page     int
	PageSize int
}
