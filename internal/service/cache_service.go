package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the slot cache. The cache is advisory: every failure is
// logged and swallowed, and bookings never read from it.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// SlotCacheKey is the key for a mentor's free slots on one day.
func SlotCacheKey(mentorID string, date time.Time) string {
	return fmt.Sprintf("slots:%s:%s", mentorID, models.FormatDate(date))
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func slotCachePattern(mentorID string) string {
	return "slots:" + globEscaper.Replace(mentorID) + ":*"
}

// GetSlots returns cached free slots and whether the lookup hit.
func (s *CacheService) GetSlots(ctx context.Context, mentorID string, date time.Time) ([]models.Slot, bool) {
	if !s.Enabled() {
		return nil, false
	}
	key := SlotCacheKey(mentorID, date)
	start := time.Now()
	var slots []models.Slot
	err := s.repo.Get(ctx, key, &slots)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("slot cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return slots, true
}

// SetSlots stores free slots with the default TTL.
func (s *CacheService) SetSlots(ctx context.Context, mentorID string, date time.Time, slots []models.Slot) {
	if !s.Enabled() {
		return
	}
	key := SlotCacheKey(mentorID, date)
	start := time.Now()
	err := s.repo.Set(ctx, key, slots, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("slot cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateDay drops the cached slots of one mentor day.
func (s *CacheService) InvalidateDay(ctx context.Context, mentorID string, date time.Time) {
	if !s.Enabled() {
		return
	}
	key := SlotCacheKey(mentorID, date)
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("slot cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateMentor drops every cached day of a mentor, used when the template changes.
func (s *CacheService) InvalidateMentor(ctx context.Context, mentorID string) {
	if !s.Enabled() {
		return
	}
	pattern := slotCachePattern(mentorID)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("slot cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
