package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/repository"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

const (
	msgActiveSession = "you already have an active session booked for this program"
	msgSlotBooked    = "slot already booked"
)

type programRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type templateReader interface {
	GetByMentor(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error)
}

type sessionLedger interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindActive(ctx context.Context, programID, studentID string) (*models.Session, error)
	FindConflict(ctx context.Context, mentorID string, date time.Time, start models.TimeOfDay) (*models.Session, error)
	ListBookedStartTimes(ctx context.Context, mentorID string, date time.Time) ([]models.TimeOfDay, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateMeetingLink(ctx context.Context, id, link string, at time.Time) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
}

// BookingConfig tunes booking rules.
type BookingConfig struct {
	// HorizonDays bounds how far ahead a date may be booked. Zero disables the bound.
	HorizonDays int
	// Timeout caps a whole booking attempt. Zero leaves the caller's deadline alone.
	Timeout time.Duration
	Now     func() time.Time
}

// BookingService turns slot selections into booked sessions and answers free
// slot queries.
type BookingService struct {
	programs  programRepository
	templates templateReader
	ledger    sessionLedger
	cache     *CacheService
	events    *EventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       BookingConfig
}

// NewBookingService constructs a BookingService.
func NewBookingService(
	programs programRepository,
	templates templateReader,
	ledger sessionLedger,
	cache *CacheService,
	events *EventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg BookingConfig,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookingService{
		programs:  programs,
		templates: templates,
		ledger:    ledger,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		validator: newValidator(validate),
		logger:    logger,
		cfg:       cfg,
	}
}

// Book reserves one slot of a 1:1 program for the caller. The program and the
// caller's active session are checked before the slot itself, so a student
// holding an active session gets Conflict whatever slot they ask for. The
// pre-checks only produce friendlier errors; the insert itself is what enforces
// one booked session per slot and per program student.
func (s *BookingService) Book(ctx context.Context, caller *models.JWTClaims, req models.BookSessionRequest) (*models.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if err := s.validator.Struct(req); err != nil {
		return s.reject(BookingResultRejected, invalidArgument(err, "invalid booking payload"))
	}
	date, _ := models.ParseDate(req.Date)
	requested := models.Slot{StartTime: models.MustTimeOfDay(req.StartTime), EndTime: models.MustTimeOfDay(req.EndTime)}

	program, err := s.programs.FindByID(ctx, req.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.reject(BookingResultRejected, appErrors.Clone(appErrors.ErrNotFound, "program not found"))
		}
		return s.unavailable(err, "failed to load program", zap.String("program_id", req.ProgramID))
	}
	if !program.IsOneOnOne() {
		return s.reject(BookingResultRejected, appErrors.Clone(appErrors.ErrInvalidState, "program does not support 1:1 booking"))
	}
	if program.MentorID == caller.UserID {
		return s.reject(BookingResultRejected, appErrors.Clone(appErrors.ErrForbidden, "mentors cannot book their own program"))
	}

	if _, err := s.ledger.FindActive(ctx, program.ID, caller.UserID); err == nil {
		return s.reject(BookingResultConflict, appErrors.Clone(appErrors.ErrConflict, msgActiveSession))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s.unavailable(err, "failed to check active sessions", zap.String("program_id", program.ID))
	}
	if _, err := s.ledger.FindConflict(ctx, program.MentorID, date, requested.StartTime); err == nil {
		return s.reject(BookingResultConflict, appErrors.Clone(appErrors.ErrConflict, msgSlotBooked))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return s.unavailable(err, "failed to check slot", zap.String("mentor_id", program.MentorID))
	}

	// Slot shape and date rules only apply once the student may book at all.
	if requested.StartTime >= requested.EndTime {
		return s.reject(BookingResultRejected, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time"))
	}
	if err := s.checkBookable(date, requested.StartTime); err != nil {
		return s.reject(BookingResultRejected, err)
	}
	tpl, err := loadTemplate(ctx, s.templates, program.MentorID)
	if err != nil {
		return s.unavailable(err, "failed to load availability", zap.String("mentor_id", program.MentorID))
	}
	if !containsSlot(GenerateSlots(tpl, date), requested) {
		return s.reject(BookingResultRejected, appErrors.Clone(appErrors.ErrValidation, "requested time is not an available slot for this mentor"))
	}

	now := s.cfg.Now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		ProgramID: program.ID,
		MentorID:  program.MentorID,
		StudentID: caller.UserID,
		Date:      date,
		StartTime: requested.StartTime,
		EndTime:   requested.EndTime,
		Status:    models.SessionStatusBooked,
		CreatedAt: now,
		UpdatedAt: now,
	}

	started := time.Now()
	err = s.ledger.Create(ctx, session)
	s.metrics.ObserveDBQuery("create_session", time.Since(started))
	if err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			message := msgSlotBooked
			if conflict.Kind == repository.ConflictActiveSession {
				message = msgActiveSession
			}
			s.logger.Warn("booking lost race",
				zap.String("mentor_id", session.MentorID),
				zap.String("date", req.Date),
				zap.String("start_time", req.StartTime),
				zap.String("constraint", conflict.Constraint),
			)
			return s.reject(BookingResultLostRace, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message))
		}
		return s.unavailable(err, "failed to book session", zap.String("program_id", program.ID))
	}

	s.cache.InvalidateDay(ctx, session.MentorID, session.Date)
	s.events.Publish(slotEvent(models.EventSessionBooked, session))
	s.metrics.RecordBooking(BookingResultBooked)
	s.logger.Info("session booked",
		zap.String("session_id", session.ID),
		zap.String("program_id", session.ProgramID),
		zap.String("mentor_id", session.MentorID),
		zap.String("student_id", session.StudentID),
		zap.String("date", req.Date),
		zap.String("start_time", req.StartTime),
	)
	return session, nil
}

// AvailableSlots returns the mentor's candidate slots for date minus the ones
// already booked, in generator order. The bool reports a cache hit.
func (s *BookingService) AvailableSlots(ctx context.Context, mentorID, rawDate string) ([]models.Slot, bool, error) {
	if mentorID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "mentor id is required")
	}
	date, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, false, invalidArgument(err, "date must be formatted as YYYY-MM-DD")
	}

	if cached, ok := s.cache.GetSlots(ctx, mentorID, date); ok {
		if cached == nil {
			cached = []models.Slot{}
		}
		s.metrics.ObserveSlotsServed(len(cached))
		return cached, true, nil
	}

	tpl, err := loadTemplate(ctx, s.templates, mentorID)
	if err != nil {
		s.logger.Error("failed to load availability", zap.String("mentor_id", mentorID), zap.Error(err))
		return nil, false, appErrors.Unavailable(err, "failed to load availability")
	}
	candidates := GenerateSlots(tpl, date)
	if len(candidates) == 0 {
		s.metrics.ObserveSlotsServed(0)
		return candidates, false, nil
	}

	started := time.Now()
	booked, err := s.ledger.ListBookedStartTimes(ctx, mentorID, date)
	s.metrics.ObserveDBQuery("list_booked", time.Since(started))
	if err != nil {
		s.logger.Error("failed to list booked slots", zap.String("mentor_id", mentorID), zap.Error(err))
		return nil, false, appErrors.Unavailable(err, "failed to load booked slots")
	}

	free := subtractBooked(candidates, booked)
	s.cache.SetSlots(ctx, mentorID, date, free)
	s.metrics.ObserveSlotsServed(len(free))
	return free, false, nil
}

// checkBookable rejects past dates, slots that already started today and
// dates beyond the booking horizon. Dates are compared in UTC.
func (s *BookingService) checkBookable(date time.Time, start models.TimeOfDay) error {
	now := s.cfg.Now().UTC()
	today := models.NormalizeDate(now)
	if date.Before(today) {
		return appErrors.Clone(appErrors.ErrValidation, "cannot book a date in the past")
	}
	if date.Equal(today) && !start.On(date).After(now) {
		return appErrors.Clone(appErrors.ErrValidation, "slot has already started")
	}
	if s.cfg.HorizonDays > 0 && date.After(today.AddDate(0, 0, s.cfg.HorizonDays)) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sessions can be booked at most %d days ahead", s.cfg.HorizonDays))
	}
	return nil
}

func (s *BookingService) reject(result string, err error) (*models.Session, error) {
	s.metrics.RecordBooking(result)
	return nil, err
}

func (s *BookingService) unavailable(err error, message string, fields ...zap.Field) (*models.Session, error) {
	s.logger.Error(message, append(fields, zap.Error(err))...)
	s.metrics.RecordBooking(BookingResultUnavailable)
	return nil, appErrors.Unavailable(err, message)
}

// loadTemplate returns the stored template or the default one.
func loadTemplate(ctx context.Context, repo templateReader, mentorID string) (*models.AvailabilityTemplate, error) {
	tpl, err := repo.GetByMentor(ctx, mentorID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultTemplate(mentorID), nil
	}
	return tpl, err
}
