package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// NotificationRepository writes notification outbox rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateBatch inserts all notifications in one transaction. Rows already written for the same event and
// recipient are skipped so retried jobs do not duplicate them.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) (err error) {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO notifications (id, recipient_id, event_type, session_id, payload, created_at)
		VALUES (:id, :recipient_id, :event_type, :session_id, :payload, :created_at)
		ON CONFLICT (session_id, event_type, recipient_id) DO NOTHING`
	now := time.Now().UTC()
	for i := range notifications {
		n := &notifications[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if len(n.Payload) == 0 {
			n.Payload = types.JSONText(`{}`)
		}
		if _, err = tx.NamedExecContext(ctx, query, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit notification tx: %w", err)
	}
	return nil
}
