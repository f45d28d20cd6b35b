package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/pkg/jobs"
)

const bookingEventJobType = "booking_event"

// Broadcaster delivers a payload to every subscriber of a mentor and returns
// how many received it.
type Broadcaster interface {
	Broadcast(mentorID string, payload []byte) int
}

// EventPublisherConfig sizes the delivery worker pool.
type EventPublisherConfig struct {
	Workers    int
	BufferSize int
}

// EventPublisher queues booking events and fans them out to slot stream
// subscribers off the request path. A nil publisher drops everything.
type EventPublisher struct {
	queue   *jobs.Queue
	hub     Broadcaster
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewEventPublisher wires a publisher to hub.
func NewEventPublisher(hub Broadcaster, metrics *MetricsService, logger *zap.Logger, cfg EventPublisherConfig) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &EventPublisher{hub: hub, metrics: metrics, logger: logger, now: time.Now}
	p.queue = jobs.NewQueue("booking-events", p.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return p
}

// Start launches the delivery workers.
func (p *EventPublisher) Start(ctx context.Context) {
	if p == nil {
		return
	}
	p.queue.Start(ctx)
}

// Stop drains queued events until ctx expires.
func (p *EventPublisher) Stop(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.queue.Stop(ctx)
}

// Publish enqueues evt. It never blocks and never fails the caller: a full or
// stopped queue only costs the subscribers one notification.
func (p *EventPublisher) Publish(evt models.BookingEvent) {
	if p == nil || evt.MentorID == "" {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	err := p.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: bookingEventJobType, Payload: evt})
	if err == nil {
		return
	}
	p.metrics.RecordEventDropped()
	if errors.Is(err, jobs.ErrQueueFull) {
		p.logger.Warn("booking event dropped", zap.String("type", string(evt.Type)), zap.String("mentor_id", evt.MentorID), zap.Error(err))
		return
	}
	p.logger.Debug("booking event not queued", zap.String("type", string(evt.Type)), zap.Error(err))
}

func (p *EventPublisher) deliver(ctx context.Context, job jobs.Job) error {
	evt, ok := job.Payload.(models.BookingEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	if p.hub == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	delivered := p.hub.Broadcast(evt.MentorID, payload)
	p.logger.Debug("booking event delivered", zap.String("type", string(evt.Type)), zap.String("mentor_id", evt.MentorID), zap.Int("subscribers", delivered))
	return nil
}

func slotEvent(kind models.EventType, session *models.Session) models.BookingEvent {
	start := session.StartTime
	return models.BookingEvent{
		Type:      kind,
		MentorID:  session.MentorID,
		Date:      models.FormatDate(session.Date),
		SessionID: session.ID,
		StartTime: &start,
	}
}
