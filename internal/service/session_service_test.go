package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

func seedSession(l *memoryLedger, id, program, mentorID, studentID, date, start, end string, status models.SessionStatus) models.Session {
	s := models.Session{
		ID:        id,
		ProgramID: program,
		MentorID:  mentorID,
		StudentID: studentID,
		Date:      day(date),
		StartTime: models.MustTimeOfDay(start),
		EndTime:   models.MustTimeOfDay(end),
		Status:    status,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	l.sessions[id] = s
	l.order = append(l.order, id)
	return s
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)

	_, err := f.sessions.Complete(ctx, student("student-a"), "sess-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = f.sessions.Complete(ctx, mentor("mentor-2"), "sess-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = f.sessions.SetMeetingLink(ctx, student("student-a"), "sess-1", models.UpdateMeetingLinkRequest{MeetingLink: "https://meet.example.com/x"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = f.sessions.Complete(ctx, mentor("mentor-1"), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))

	_, err = f.sessions.Complete(ctx, nil, "sess-1")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errCode(err))

	stored, err := f.ledger.FindByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusBooked, stored.Status)
	assert.Empty(t, stored.MeetingLink)
}

func TestSessionCompleteIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)

	done, err := f.sessions.Complete(ctx, mentor("mentor-1"), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, done.Status)

	_, err = f.sessions.Complete(ctx, mentor("mentor-1"), "sess-1")
	assert.Equal(t, appErrors.ErrInvalidState.Code, errCode(err))
}

func TestSessionMeetingLink(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusCompleted)

	updated, err := f.sessions.SetMeetingLink(ctx, mentor("mentor-1"), "sess-1", models.UpdateMeetingLinkRequest{MeetingLink: " https://meet.example.com/abc "})
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/abc", updated.MeetingLink)
	assert.Equal(t, models.SessionStatusCompleted, updated.Status)

	cleared, err := f.sessions.SetMeetingLink(ctx, mentor("mentor-1"), "sess-1", models.UpdateMeetingLinkRequest{})
	require.NoError(t, err)
	assert.Empty(t, cleared.MeetingLink)

	freeText, err := f.sessions.SetMeetingLink(ctx, mentor("mentor-1"), "sess-1", models.UpdateMeetingLinkRequest{MeetingLink: "Zoom ID 123 456 7890"})
	require.NoError(t, err)
	assert.Equal(t, "Zoom ID 123 456 7890", freeText.MeetingLink)

	_, err = f.sessions.SetMeetingLink(ctx, mentor("mentor-1"), "sess-1", models.UpdateMeetingLinkRequest{MeetingLink: strings.Repeat("x", 2049)})
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestSessionMeetingLinkOwnershipBeforeValidation(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)
	tooLong := models.UpdateMeetingLinkRequest{MeetingLink: strings.Repeat("x", 2049)}

	_, err := f.sessions.SetMeetingLink(ctx, mentor("mentor-2"), "sess-1", tooLong)
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = f.sessions.SetMeetingLink(ctx, student("student-a"), "sess-1", models.UpdateMeetingLinkRequest{MeetingLink: "room 42 on zoom"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	_, err = f.sessions.SetMeetingLink(ctx, mentor("mentor-1"), "missing", tooLong)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(err))

	stored, err := f.ledger.FindByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored.MeetingLink)
}

func TestSessionGetParticipantsOnly(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)

	for _, caller := range []*models.JWTClaims{mentor("mentor-1"), student("student-a")} {
		s, err := f.sessions.Get(ctx, caller, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", s.ID)
	}

	_, err := f.sessions.Get(ctx, student("student-b"), "sess-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(err))

	f.ledger.findErr = errors.New("db down")
	_, err = f.sessions.Get(ctx, student("student-a"), "sess-1")
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))
}

func TestSessionListScopedByRole(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "s1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusCompleted)
	seedSession(f.ledger, "s2", "prog-1", "mentor-1", "student-a", "2026-03-09", "10:00", "10:20", models.SessionStatusBooked)
	seedSession(f.ledger, "s3", "prog-2", "mentor-1", "student-b", "2026-03-09", "10:20", "10:40", models.SessionStatusBooked)

	mine, page, err := f.sessions.List(ctx, student("student-a"), "", 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "s2", mine[0].ID)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: defaultSessionPageSize, TotalCount: 2}, page)

	all, _, err := f.sessions.List(ctx, mentor("mentor-1"), "booked", 1, 500)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s3", all[0].ID)

	paged, page, err := f.sessions.List(ctx, mentor("mentor-1"), "", 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, 3, page.TotalCount)

	_, _, err = f.sessions.List(ctx, mentor("mentor-1"), "cancelled", 1, 10)
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))

	none, _, err := f.sessions.List(ctx, student("student-z"), "", 1, 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSessionExport(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)
	seedSession(f.ledger, "s1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)

	body, contentType, filename, err := f.sessions.Export(ctx, mentor("mentor-1"), "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", contentType)
	assert.Equal(t, "sessions-"+fixedNow.Format("20060102")+".csv", filename)
	assert.True(t, bytes.Contains(body, []byte("2026-03-02,10:00,10:20,prog-1,mentor-1,student-a,booked,")))

	pdf, contentType, _, err := f.sessions.Export(ctx, student("student-a"), "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, _, err = f.sessions.Export(ctx, mentor("mentor-1"), "", "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestSessionCompleteLosesToConcurrentCompletion(t *testing.T) {
	ctx := context.Background()
	ledger := &racingLedger{memoryLedger: newMemoryLedger()}
	seedSession(ledger.memoryLedger, "sess-1", "prog-1", "mentor-1", "student-a", "2026-03-02", "10:00", "10:20", models.SessionStatusBooked)
	svc := NewSessionService(ledger, nil, nil, nil, nil, nil, func() time.Time { return fixedNow })

	_, err := svc.Complete(ctx, mentor("mentor-1"), "sess-1")
	assert.Equal(t, appErrors.ErrInvalidState.Code, errCode(err))
}

// racingLedger completes the session right before the guarded update runs.
type racingLedger struct {
	*memoryLedger
}

func (r *racingLedger) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	if _, err := r.memoryLedger.MarkCompleted(ctx, id, at); err != nil {
		return false, err
	}
	return r.memoryLedger.MarkCompleted(ctx, id, at)
}
