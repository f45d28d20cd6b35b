package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type stubProgramRepo struct {
	programs map[string]models.Program
	err      error
}

func (s *stubProgramRepo) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.programs[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

type stubTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]models.AvailabilityTemplate
	err       error
	upserts   int
}

func (s *stubTemplateRepo) GetByMentor(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if tpl, ok := s.templates[mentorID]; ok {
		return &tpl, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubTemplateRepo) Upsert(ctx context.Context, tpl *models.AvailabilityTemplate) (*models.AvailabilityTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.templates == nil {
		s.templates = make(map[string]models.AvailabilityTemplate)
	}
	s.upserts++
	s.templates[tpl.MentorID] = *tpl
	saved := *tpl
	return &saved, nil
}

// memoryLedger keeps sessions in memory and enforces the booked-session
// uniqueness rules inside Create, like the unique indexes do.
type memoryLedger struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	order    []string

	createErr error
	findErr   error
	// skipPrechecks makes FindActive and FindConflict report nothing so a
	// booking reaches Create, as a request that lost a race would.
	skipPrechecks bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{sessions: make(map[string]models.Session)}
}

func (m *memoryLedger) Create(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.sessions {
		if existing.Status != models.SessionStatusBooked {
			continue
		}
		if existing.MentorID == session.MentorID && existing.Date.Equal(session.Date) && existing.StartTime == session.StartTime {
			return &repository.ConflictError{Kind: repository.ConflictSlot, Constraint: "sessions_mentor_slot_booked_key", Err: errors.New("unique")}
		}
		if existing.ProgramID == session.ProgramID && existing.StudentID == session.StudentID {
			return &repository.ConflictError{Kind: repository.ConflictActiveSession, Constraint: "sessions_program_student_booked_key", Err: errors.New("unique")}
		}
	}
	m.sessions[session.ID] = *session
	m.order = append(m.order, session.ID)
	return nil
}

func (m *memoryLedger) FindByID(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryLedger) FindActive(ctx context.Context, programID, studentID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.skipPrechecks {
		return nil, sql.ErrNoRows
	}
	for _, s := range m.sessions {
		if s.ProgramID == programID && s.StudentID == studentID && s.Status == models.SessionStatusBooked {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryLedger) FindConflict(ctx context.Context, mentorID string, date time.Time, start models.TimeOfDay) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.skipPrechecks {
		return nil, sql.ErrNoRows
	}
	for _, s := range m.sessions {
		if s.MentorID == mentorID && s.Date.Equal(date) && s.StartTime == start && s.Status == models.SessionStatusBooked {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryLedger) ListBookedStartTimes(ctx context.Context, mentorID string, date time.Time) ([]models.TimeOfDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var starts []models.TimeOfDay
	for _, s := range m.sessions {
		if s.MentorID == mentorID && s.Date.Equal(date) && s.Status == models.SessionStatusBooked {
			starts = append(starts, s.StartTime)
		}
	}
	return starts, nil
}

func (m *memoryLedger) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusBooked {
		return false, nil
	}
	s.Status = models.SessionStatusCompleted
	s.UpdatedAt = at.UTC()
	m.sessions[id] = s
	return true, nil
}

func (m *memoryLedger) UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	s.MeetingLink = link
	s.UpdatedAt = at.UTC()
	m.sessions[id] = s
	return nil
}

func (m *memoryLedger) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, 0, m.findErr
	}
	var out []models.Session
	for _, id := range m.order {
		s := m.sessions[id]
		owner := s.StudentID
		if filter.Role == models.RoleMentor {
			owner = s.MentorID
		}
		if owner != filter.UserID || (filter.Status != "" && s.Status != filter.Status) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].StartTime > out[j].StartTime
	})
	total := len(out)
	if filter.PageSize > 0 {
		from := (filter.Page - 1) * filter.PageSize
		if from > total {
			from = total
		}
		to := from + filter.PageSize
		if to > total {
			to = total
		}
		out = out[from:to]
	}
	return out, total, nil
}

func (m *memoryLedger) bookedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusBooked {
			n++
		}
	}
	return n
}

// Sunday 2026-03-01 noon UTC; the next day is a Monday.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func mentor(id string) *models.JWTClaims { return &models.JWTClaims{UserID: id, Role: models.RoleMentor} }

func student(id string) *models.JWTClaims { return &models.JWTClaims{UserID: id, Role: models.RoleStudent} }

type bookingFixture struct {
	programs  *stubProgramRepo
	templates *stubTemplateRepo
	ledger    *memoryLedger
	booking   *BookingService
	sessions  *SessionService
	avail     *AvailabilityService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		programs: &stubProgramRepo{programs: map[string]models.Program{
			"prog-1":   {ID: "prog-1", MentorID: "mentor-1", Title: "Go reviews", Format: models.ProgramFormatOneOnOne},
			"prog-2":   {ID: "prog-2", MentorID: "mentor-1", Title: "System design", Format: models.ProgramFormatOneOnOne},
			"group-1":  {ID: "group-1", MentorID: "mentor-1", Title: "Cohort", Format: "group"},
			"prog-own": {ID: "prog-own", MentorID: "mentor-2", Title: "Other", Format: models.ProgramFormatOneOnOne},
		}},
		templates: &stubTemplateRepo{templates: map[string]models.AvailabilityTemplate{
			"mentor-1": {MentorID: "mentor-1", SlotDurationMinutes: 20, Windows: []models.WeeklyWindow{
				{DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00"},
			}},
			"mentor-2": {MentorID: "mentor-2", SlotDurationMinutes: 30, Windows: []models.WeeklyWindow{
				{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"},
			}},
		}},
		ledger: newMemoryLedger(),
	}
	f.booking = NewBookingService(f.programs, f.templates, f.ledger, nil, nil, nil, nil, nil, BookingConfig{HorizonDays: 60, Now: fixedClock})
	f.sessions = NewSessionService(f.ledger, nil, nil, nil, nil, nil, fixedClock)
	f.avail = NewAvailabilityService(f.templates, nil, nil, nil, nil)
	return f
}

func bookReq(program, date, start, end string) models.BookSessionRequest {
	return models.BookSessionRequest{ProgramID: program, Date: date, StartTime: start, EndTime: end}
}

func errCode(err error) string {
	if e := appErrors.FromError(err); e != nil {
		return e.Code
	}
	return ""
}

func TestBookingEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	slots, _, err := f.booking.AvailableSlots(ctx, "mentor-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{slot("10:00", "10:20"), slot("10:20", "10:40"), slot("10:40", "11:00")}, slots)

	a, err := f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:20", "10:40"))
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusBooked, a.Status)
	assert.Equal(t, "mentor-1", a.MentorID)
	assert.Equal(t, day("2026-03-02"), a.Date)
	assert.Empty(t, a.MeetingLink)

	slots, _, err = f.booking.AvailableSlots(ctx, "mentor-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{slot("10:00", "10:20"), slot("10:40", "11:00")}, slots)

	_, err = f.booking.Book(ctx, student("student-b"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	require.NoError(t, err)

	// A still holds an active session in prog-1.
	_, err = f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:40", "11:00"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(err))
	assert.Contains(t, err.Error(), "active session")

	_, err = f.sessions.Complete(ctx, mentor("mentor-1"), a.ID)
	require.NoError(t, err)

	again, err := f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:40", "11:00"))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, again.ID)

	// Completing 10:20 freed it again.
	slots, _, err = f.booking.AvailableSlots(ctx, "mentor-1", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, []models.Slot{slot("10:20", "10:40")}, slots)
}

func TestBookSlotAlreadyBooked(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	_, err := f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	require.NoError(t, err)

	_, err = f.booking.Book(ctx, student("student-b"), bookReq("prog-2", "2026-03-02", "10:00", "10:20"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(err))
	assert.Contains(t, err.Error(), "slot already booked")
}

func TestBookValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	cases := []struct {
		name   string
		caller *models.JWTClaims
		req    models.BookSessionRequest
		code   string
	}{
		{"anonymous", nil, bookReq("prog-1", "2026-03-02", "10:00", "10:20"), appErrors.ErrUnauthorized.Code},
		{"missing program", student("s"), bookReq("", "2026-03-02", "10:00", "10:20"), appErrors.ErrValidation.Code},
		{"bad date", student("s"), bookReq("prog-1", "02-03-2026", "10:00", "10:20"), appErrors.ErrValidation.Code},
		{"bad time", student("s"), bookReq("prog-1", "2026-03-02", "10:0", "10:20"), appErrors.ErrValidation.Code},
		{"reversed", student("s"), bookReq("prog-1", "2026-03-02", "10:20", "10:00"), appErrors.ErrValidation.Code},
		{"past date", student("s"), bookReq("prog-1", "2026-02-28", "10:00", "10:20"), appErrors.ErrValidation.Code},
		{"beyond horizon", student("s"), bookReq("prog-1", "2026-06-01", "10:00", "10:20"), appErrors.ErrValidation.Code},
		{"unknown program", student("s"), bookReq("prog-x", "2026-03-02", "10:00", "10:20"), appErrors.ErrNotFound.Code},
		{"unknown program on a past date", student("s"), bookReq("prog-x", "2026-02-28", "10:00", "10:20"), appErrors.ErrNotFound.Code},
		{"group program off template", student("s"), bookReq("group-1", "2026-03-03", "10:05", "10:25"), appErrors.ErrInvalidState.Code},
		{"group program", student("s"), bookReq("group-1", "2026-03-02", "10:00", "10:20"), appErrors.ErrInvalidState.Code},
		{"own program", mentor("mentor-2"), bookReq("prog-own", "2026-03-02", "09:00", "09:30"), appErrors.ErrForbidden.Code},
		{"not a slot", student("s"), bookReq("prog-1", "2026-03-02", "10:05", "10:25"), appErrors.ErrValidation.Code},
		{"wrong length", student("s"), bookReq("prog-1", "2026-03-02", "10:00", "10:40"), appErrors.ErrValidation.Code},
		{"wrong weekday", student("s"), bookReq("prog-1", "2026-03-03", "10:00", "10:20"), appErrors.ErrValidation.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.booking.Book(ctx, tc.caller, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, errCode(err))
		})
	}
	assert.Zero(t, f.ledger.bookedCount())
}

func TestBookActiveSessionConflictsWhateverSlot(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	_, err := f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:20", "10:40"))
	require.NoError(t, err)

	for name, req := range map[string]models.BookSessionRequest{
		"off template":  bookReq("prog-1", "2026-03-02", "10:05", "10:25"),
		"wrong weekday": bookReq("prog-1", "2026-03-03", "10:00", "10:20"),
		"past date":     bookReq("prog-1", "2026-02-23", "10:00", "10:20"),
		"reversed":      bookReq("prog-1", "2026-03-02", "10:40", "10:00"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.booking.Book(ctx, student("student-a"), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrConflict.Code, errCode(err))
			assert.Contains(t, err.Error(), "active session")
		})
	}
	assert.Equal(t, 1, f.ledger.bookedCount())
}

func TestBookRejectsSlotAlreadyStartedToday(t *testing.T) {
	f := newBookingFixture(t)
	// Monday 10:30 UTC: 10:20 has started, 10:40 has not.
	monday := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	f.booking = NewBookingService(f.programs, f.templates, f.ledger, nil, nil, nil, nil, nil, BookingConfig{Now: func() time.Time { return monday }})

	_, err := f.booking.Book(context.Background(), student("s"), bookReq("prog-1", "2026-03-02", "10:20", "10:40"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	_, err = f.booking.Book(context.Background(), student("s"), bookReq("prog-1", "2026-03-02", "10:40", "11:00"))
	require.NoError(t, err)
}

func TestBookLostRaceIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	_, err := f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	require.NoError(t, err)

	f.ledger.skipPrechecks = true

	_, err = f.booking.Book(ctx, student("student-b"), bookReq("prog-2", "2026-03-02", "10:00", "10:20"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.ErrorIs(t, err, repository.ErrSessionConflict)
	assert.Contains(t, err.Error(), "slot already booked")

	_, err = f.booking.Book(ctx, student("student-a"), bookReq("prog-1", "2026-03-02", "10:40", "11:00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "active session")
}

func TestBookConcurrentSameSlot(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			studentID := "student-" + string(rune('a'+i))
			_, err := f.booking.Book(ctx, student(studentID), bookReq("prog-1", "2026-03-02", "10:40", "11:00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if errors.Is(err, appErrors.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, f.ledger.bookedCount())
}

func TestBookStorageFailureIsUnavailable(t *testing.T) {
	ctx := context.Background()

	f := newBookingFixture(t)
	f.ledger.createErr = errors.New("connection reset")
	_, err := f.booking.Book(ctx, student("s"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))

	f = newBookingFixture(t)
	f.programs.err = errors.New("connection reset")
	_, err = f.booking.Book(ctx, student("s"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))

	f = newBookingFixture(t)
	f.ledger.findErr = errors.New("connection reset")
	_, err = f.booking.Book(ctx, student("s"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))
}

func TestBookCancelledContextLeavesNoSession(t *testing.T) {
	f := newBookingFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.booking.Book(ctx, student("s"), bookReq("prog-1", "2026-03-02", "10:00", "10:20"))
	require.Error(t, err)
	assert.NotEqual(t, appErrors.ErrConflict.Code, errCode(err))
	assert.Zero(t, f.ledger.bookedCount())
}

func TestAvailableSlotsWithoutTemplateIsEmpty(t *testing.T) {
	f := newBookingFixture(t)
	slots, hit, err := f.booking.AvailableSlots(context.Background(), "mentor-none", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestAvailableSlotsRejectsBadDate(t *testing.T) {
	f := newBookingFixture(t)
	_, _, err := f.booking.AvailableSlots(context.Background(), "mentor-1", "2026-3-2")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(err))
}

func TestAvailableSlotsStorageFailure(t *testing.T) {
	f := newBookingFixture(t)
	f.ledger.findErr = errors.New("timeout")
	_, _, err := f.booking.AvailableSlots(context.Background(), "mentor-1", "2026-03-02")
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))

	f = newBookingFixture(t)
	f.templates.err = errors.New("timeout")
	_, _, err = f.booking.AvailableSlots(context.Background(), "mentor-1", "2026-03-02")
	assert.Equal(t, appErrors.ErrUnavailable.Code, errCode(err))
}
