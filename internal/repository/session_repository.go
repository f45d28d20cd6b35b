package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// SessionRepository is the booking ledger. The two partial unique indexes on
// sessions are the only thing standing between concurrent bookings and a
// double-booked mentor, so Create never checks before inserting.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, program_id, mentor_id, student_id, session_date, start_time, end_time, meeting_link, status, created_at, updated_at`

// Create inserts a booked session. A unique-index rejection comes back as
// *ConflictError (matching ErrSessionConflict).
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := r.db.Rebind(`INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.ProgramID,
		session.MentorID,
		session.StudentID,
		models.FormatDate(session.Date),
		session.StartTime,
		session.EndTime,
		session.MeetingLink,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", classifySessionWriteError(err))
	}
	return nil
}

// FindByID returns the session or sql.ErrNoRows.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	return r.getOne(ctx, query, id)
}

// FindActive returns the student's booked session in the program, or sql.ErrNoRows.
func (r *SessionRepository) FindActive(ctx context.Context, programID, studentID string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE program_id = ? AND student_id = ? AND status = ? LIMIT 1`)
	return r.getOne(ctx, query, programID, studentID, models.SessionStatusBooked)
}

// FindConflict returns the mentor's booked session at date and start, or sql.ErrNoRows.
func (r *SessionRepository) FindConflict(ctx context.Context, mentorID string, date time.Time, start models.TimeOfDay) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE mentor_id = ? AND session_date = ? AND start_time = ? AND status = ? LIMIT 1`)
	return r.getOne(ctx, query, mentorID, models.FormatDate(date), start, models.SessionStatusBooked)
}

// ListBookedStartTimes returns the start times the mentor is booked for on date.
func (r *SessionRepository) ListBookedStartTimes(ctx context.Context, mentorID string, date time.Time) ([]models.TimeOfDay, error) {
	query := r.db.Rebind(`SELECT start_time FROM sessions WHERE mentor_id = ? AND session_date = ? AND status = ?`)
	var starts []models.TimeOfDay
	if err := r.db.SelectContext(ctx, &starts, query, mentorID, models.FormatDate(date), models.SessionStatusBooked); err != nil {
		return nil, fmt.Errorf("list booked start times: %w", err)
	}
	return starts, nil
}

// MarkCompleted flips a booked session to completed. It reports false, without
// error, when the session is missing or no longer booked.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	query := r.db.Rebind(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, models.SessionStatusCompleted, at.UTC(), id, models.SessionStatusBooked)
	if err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete session rows affected: %w", err)
	}
	return affected == 1, nil
}

// UpdateMeetingLink overwrites the meeting link. An empty link clears it.
func (r *SessionRepository) UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) error {
	query := r.db.Rebind(`UPDATE sessions SET meeting_link = ?, updated_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, link, at.UTC(), id); err != nil {
		return fmt.Errorf("update meeting link: %w", err)
	}
	return nil
}

// List returns one page of the participant's sessions, newest first, and the total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	column := "student_id"
	if filter.Role == models.RoleMentor {
		column = "mentor_id"
	}

	conditions := []string{column + " = ?"}
	args := []interface{}{filter.UserID}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM sessions`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where + ` ORDER BY session_date DESC, start_time DESC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.PageSize, (page-1)*filter.PageSize)
	}

	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	for i := range sessions {
		normalizeSession(&sessions[i])
	}
	return sessions, total, nil
}

func (r *SessionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Session, error) {
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		return nil, err
	}
	normalizeSession(&session)
	return &session, nil
}

// normalizeSession hides driver differences in how DATE and TIMESTAMP columns
// come back.
func normalizeSession(s *models.Session) {
	s.Date = models.NormalizeDate(s.Date)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
}
