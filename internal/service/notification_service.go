package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/pkg/jobs"
)

const notificationJobType = "session.notify"

// enqueueTimeout bounds how long Publish waits for room in the queue before writing inline.
const enqueueTimeout = 250 * time.Millisecond

type notificationRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
}

// NotificationService hands session events to the notification outbox through a background queue.
type NotificationService struct {
	repo    notificationRepository
	metrics *MetricsService
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewNotificationService builds the service and its dispatch queue. Call Start before publishing.
func NewNotificationService(repo notificationRepository, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	svc.queue = jobs.NewQueue("notifications", svc.handle, cfg)
	return svc
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains buffered events and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Publish queues the event for its recipients. When the queue cannot take it the outbox rows are written
// inline so no event is lost.
func (s *NotificationService) Publish(ctx context.Context, event models.SessionEvent) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	job := jobs.Job{ID: uuid.NewString(), Type: notificationJobType, Payload: event}

	enqueueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(enqueueCtx, job); err != nil {
		s.logger.Warn("notification queue unavailable, writing inline",
			zap.String("event", event.Type),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
		return s.write(ctx, event)
	}
	return nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.SessionEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.write(ctx, event)
}

func (s *NotificationService) write(ctx context.Context, event models.SessionEvent) error {
	rows, err := OutboxRows(event)
	if err != nil {
		return err
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("write notifications for %s: %w", event.SessionID, err)
	}
	s.metrics.RecordNotifications(len(rows))
	s.logger.Info("notifications written",
		zap.String("event", event.Type),
		zap.String("session_id", event.SessionID),
		zap.Int("recipients", len(rows)),
	)
	return nil
}

// OutboxRows expands an event into one outbox row per distinct recipient.
func OutboxRows(event models.SessionEvent) ([]models.Notification, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	seen := make(map[string]struct{}, len(event.Recipients))
	rows := make([]models.Notification, 0, len(event.Recipients))
	for _, recipient := range event.Recipients {
		if recipient == "" {
			continue
		}
		if _, dup := seen[recipient]; dup {
			continue
		}
		seen[recipient] = struct{}{}
		rows = append(rows, models.Notification{
			RecipientID: recipient,
			EventType:   event.Type,
			SessionID:   event.SessionID,
			Payload:     types.JSONText(payload),
			CreatedAt:   event.OccurredAt,
		})
	}
	return rows, nil
}
