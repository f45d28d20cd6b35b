package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

type availabilityRepository interface {
	GetByMentor(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error)
	Upsert(ctx context.Context, tpl *models.AvailabilityTemplate) (*models.AvailabilityTemplate, error)
}

// AvailabilityService reads and replaces mentors' weekly templates.
type AvailabilityService struct {
	repo      availabilityRepository
	cache     *CacheService
	events    *EventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, cache *CacheService, events *EventPublisher, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, cache: cache, events: events, validator: newValidator(validate), logger: logger}
}

// Get returns the mentor's template, or the default template when none was
// ever stored. Absence is never an error.
func (s *AvailabilityService) Get(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error) {
	if mentorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mentor id is required")
	}
	tpl, err := s.repo.GetByMentor(ctx, mentorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultTemplate(mentorID), nil
		}
		s.logger.Error("failed to load availability", zap.String("mentor_id", mentorID), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to load availability")
	}
	if tpl.Windows == nil {
		tpl.Windows = []models.WeeklyWindow{}
	}
	return tpl, nil
}

// Put replaces the caller's own template wholesale.
func (s *AvailabilityService) Put(ctx context.Context, caller *models.JWTClaims, req models.UpdateAvailabilityRequest) (*models.AvailabilityTemplate, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if caller.Role != models.RoleMentor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only mentors can set availability")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidArgument(err, "invalid availability payload")
	}
	windows := req.Windows
	if windows == nil {
		windows = []models.WeeklyWindow{}
	}
	for i, window := range windows {
		start := models.MustTimeOfDay(window.StartTime)
		end := models.MustTimeOfDay(window.EndTime)
		if start >= end {
			return nil, invalidArgument(fmt.Errorf("window %d: %s >= %s", i, window.StartTime, window.EndTime), "window start time must be before end time")
		}
	}

	saved, err := s.repo.Upsert(ctx, &models.AvailabilityTemplate{
		MentorID:            caller.UserID,
		SlotDurationMinutes: req.SlotDurationMinutes,
		Windows:             windows,
	})
	if err != nil {
		s.logger.Error("failed to save availability", zap.String("mentor_id", caller.UserID), zap.Error(err))
		return nil, appErrors.Unavailable(err, "failed to save availability")
	}
	if saved.Windows == nil {
		saved.Windows = []models.WeeklyWindow{}
	}

	s.cache.InvalidateMentor(ctx, caller.UserID)
	s.events.Publish(models.BookingEvent{Type: models.EventAvailabilityUpdated, MentorID: caller.UserID})
	s.logger.Info("availability replaced",
		zap.String("mentor_id", caller.UserID),
		zap.Int("slot_duration_minutes", saved.SlotDurationMinutes),
		zap.Int("windows", len(saved.Windows)),
	)
	return saved, nil
}
