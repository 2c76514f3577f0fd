package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) InsertNotification(ctx context.Context, n *model.Notification) error {
	defer logger.DeferLogDuration("notification.InsertNotification", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (notification_id, user_name, message, timestamp, read_flag)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.NotificationID, n.User, n.Message, n.Timestamp, n.ReadFlag,
	)
	if err != nil {
		return fmt.Errorf("notificationRepo.InsertNotification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) NotificationsByUser(ctx context.Context, user string) ([]model.Notification, error) {
	defer logger.DeferLogDuration("notification.NotificationsByUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT notification_id, user_name, message, timestamp, read_flag
		 FROM notifications WHERE user_name = $1
		 ORDER BY timestamp DESC`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("notificationRepo.NotificationsByUser query: %w", err)
	}
	defer rows.Close()

	list := make([]model.Notification, 0, 16)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.NotificationID, &n.User, &n.Message, &n.Timestamp, &n.ReadFlag); err != nil {
			return nil, fmt.Errorf("notificationRepo.NotificationsByUser scan: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notificationRepo.NotificationsByUser rows: %w", err)
	}
	return list, nil
}

func (r *NotificationRepository) MarkNotificationsRead(ctx context.Context, user string) error {
	defer logger.DeferLogDuration("notification.MarkNotificationsRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_flag = true WHERE user_name = $1 AND read_flag = false`,
		user,
	)
	if err != nil {
		return fmt.Errorf("notificationRepo.MarkNotificationsRead: %w", err)
	}
	return nil
}
