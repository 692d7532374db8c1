package store

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationTableName = "notifications"

var notificationColumns = utils.Columns(types.Notification{})

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) NotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]*types.Notification, error) {
	where := sq.Eq{"user_id": userID}
	if unreadOnly {
		where["is_read"] = false
	}

	query, args, err := psql().
		Select(notificationColumns...).
		From(notificationTableName).
		Where(where).
		OrderBy("created_at DESC").
		Limit(100).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate notifications query: %w", err)
	}

	notes := make([]*types.Notification, 0)
	err = pgxscan.Select(ctx, r.pool, &notes, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notes, nil
}

// CreateMany inserts every notification in a single statement, so a broadcast
// either reaches all matched donors or none.
func (r *NotificationRepository) CreateMany(ctx context.Context, notes []*types.Notification) error {
	if len(notes) == 0 {
		return nil
	}

	now := time.Now()
	builder := psql().Insert(notificationTableName).Columns(notificationColumns...)
	for _, n := range notes {
		if n.ID == "" {
			n.ID = utils.NanoID()
		}
		n.CreatedAt = now
		builder = builder.Values(n.ID, n.UserID, n.DonorID, n.BloodRequestID, n.Title, n.Message, n.IsRead, n.CreatedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert notifications query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create notifications")
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	query, args, err := psql().
		Update(notificationTableName).
		Set("is_read", true).
		Where(sq.Eq{"id": notificationID, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark notification read query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotificationNotFound
	}

	return nil
}
