package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
	"github.com/noah-isme/mentor-booking-api/pkg/export"
)

const (
	defaultSessionPageSize = 20
	maxSessionPageSize     = 100
)

// SessionService covers what happens to a session after it is booked.
type SessionService struct {
	ledger    sessionLedger
	cache     *CacheService
	events    *EventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService constructs a SessionService. now may be nil.
func NewSessionService(ledger sessionLedger, cache *CacheService, events *EventPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, now func() time.Time) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		ledger:    ledger,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		validator: newValidator(validate),
		logger:    logger,
		now:       now,
	}
}

// Get returns a session readable by its mentor or student.
func (s *SessionService) Get(ctx context.Context, caller *models.JWTClaims, id string) (*models.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(caller.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not a participant of this session")
	}
	return session, nil
}

// List returns the caller's sessions, as mentor or as student depending on the
// role claim, newest first.
func (s *SessionService) List(ctx context.Context, caller *models.JWTClaims, status string, page, pageSize int) ([]models.Session, *models.Pagination, error) {
	if err := requireCaller(caller); err != nil {
		return nil, nil, err
	}
	filter, err := sessionFilter(caller, status)
	if err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSessionPageSize
	}
	if pageSize > maxSessionPageSize {
		pageSize = maxSessionPageSize
	}
	filter.Page = page
	filter.PageSize = pageSize

	sessions, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list sessions", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, nil, appErrors.Unavailable(err, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Complete moves a booked session to completed. Only the session's mentor may
// do it, and completed is terminal.
func (s *SessionService) Complete(ctx context.Context, caller *models.JWTClaims, id string) (*models.Session, error) {
	session, err := s.loadOwned(ctx, caller, id, "only the mentor can mark a session complete")
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusBooked {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only booked sessions can be completed")
	}

	updated, err := s.ledger.MarkCompleted(ctx, id, s.now())
	if err != nil {
		s.logger.Error("failed to complete session", zap.String("session_id", id), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to complete session")
	}
	if !updated {
		// Completed concurrently between the read and the guarded update.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only booked sessions can be completed")
	}

	session, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateDay(ctx, session.MentorID, session.Date)
	s.events.Publish(slotEvent(models.EventSessionCompleted, session))
	s.metrics.RecordTransition(SessionTransitionComplete)
	s.logger.Info("session completed", zap.String("session_id", id), zap.String("mentor_id", session.MentorID))
	return session, nil
}

// SetMeetingLink sets or clears the meeting link in any status. The link is
// free text, so a room name or dial-in works as well as a URL.
func (s *SessionService) SetMeetingLink(ctx context.Context, caller *models.JWTClaims, id string, req models.UpdateMeetingLinkRequest) (*models.Session, error) {
	if _, err := s.loadOwned(ctx, caller, id, "only the mentor can set the meeting link"); err != nil {
		return nil, err
	}
	req.MeetingLink = strings.TrimSpace(req.MeetingLink)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidArgument(err, "meeting link must be at most 2048 characters")
	}

	if err := s.ledger.UpdateMeetingLink(ctx, id, req.MeetingLink, s.now()); err != nil {
		s.logger.Error("failed to update meeting link", zap.String("session_id", id), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to update meeting link")
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.events.Publish(slotEvent(models.EventSessionLinkUpdated, session))
	return session, nil
}

// Export renders every session the caller can list as CSV or PDF and returns
// the body, its content type and a download file name.
func (s *SessionService) Export(ctx context.Context, caller *models.JWTClaims, status, rawFormat string) ([]byte, string, string, error) {
	if err := requireCaller(caller); err != nil {
		return nil, "", "", err
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, "", "", invalidArgument(err, "format must be csv or pdf")
	}
	filter, err := sessionFilter(caller, status)
	if err != nil {
		return nil, "", "", err
	}

	sessions, _, err := s.ledger.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to load sessions for export", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, "", "", appErrors.Unavailable(err, "failed to export sessions")
	}

	table := export.Table{
		Title:   "Session history",
		Headers: []string{"Date", "Start", "End", "Program", "Mentor", "Student", "Status", "Meeting link"},
		Rows:    make([][]string, 0, len(sessions)),
	}
	for _, session := range sessions {
		table.Rows = append(table.Rows, []string{
			models.FormatDate(session.Date),
			session.StartTime.String(),
			session.EndTime.String(),
			session.ProgramID,
			session.MentorID,
			session.StudentID,
			string(session.Status),
			session.MeetingLink,
		})
	}

	body, err := export.Render(format, table)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("sessions-%s.%s", s.now().UTC().Format("20060102"), format)
	return body, format.ContentType(), filename, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	session, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		s.logger.Error("failed to load session", zap.String("session_id", id), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) loadOwned(ctx context.Context, caller *models.JWTClaims, id, forbidden string) (*models.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.MentorID != caller.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, forbidden)
	}
	return session, nil
}

func sessionFilter(caller *models.JWTClaims, status string) (models.SessionFilter, error) {
	filter := models.SessionFilter{UserID: caller.UserID, Role: caller.Role}
	if status != "" {
		st := models.SessionStatus(strings.ToLower(status))
		if !st.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "status must be booked or completed")
		}
		filter.Status = st
	}
	return filter, nil
}
