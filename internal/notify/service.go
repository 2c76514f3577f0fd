// Package notify persists user notifications and pushes them over every
// available channel: the live WebSocket and Web Push to the user's browser
// subscriptions.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/push"
	"github.com/sailchat/internal/storage"
	"github.com/sailchat/internal/ws"
)

// Store persists notification rows.
type Store interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	NotificationsByUser(ctx context.Context, user string) ([]model.Notification, error)
	MarkNotificationsRead(ctx context.Context, user string) error
}

type Service struct {
	store   Store
	hub     *ws.Hub
	subs    storage.SessionPushStore
	sender  *push.Sender
	appName string
}

func NewService(store Store, hub *ws.Hub, subs storage.SessionPushStore, sender *push.Sender, appName string) *Service {
	return &Service{store: store, hub: hub, subs: subs, sender: sender, appName: appName}
}

// Notify stores the notification and delivers it. The row is the source of
// truth; ws and Web Push failures are logged and swallowed.
func (s *Service) Notify(ctx context.Context, user, message string) error {
	n := &model.Notification{
		NotificationID: uuid.New().String(),
		User:           user,
		Message:        message,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return err
	}

	s.hub.PushToUser(user, ws.Outgoing{Type: ws.EventNewNotification, Payload: n})

	if s.sender != nil {
		go s.webPush(user, message, n.NotificationID)
	}
	return nil
}

func (s *Service) webPush(user, message, notificationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	subs, err := s.subs.Subscriptions(ctx, user)
	if err != nil {
		logger.Errorf("notify: subscriptions user=%s: %v", user, err)
		return
	}
	payload := push.Payload{
		Title: s.appName,
		Body:  message,
		Data:  map[string]string{"notification_id": notificationID},
	}
	for _, raw := range subs {
		gone, err := s.sender.Send(ctx, raw, payload)
		if err != nil {
			logger.Warnf("notify: web push user=%s: %v", user, err)
		}
		if gone {
			s.dropSubscription(ctx, user, raw)
		}
	}
}

func (s *Service) dropSubscription(ctx context.Context, user, raw string) {
	var sub push.Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil || sub.Endpoint == "" {
		return
	}
	if err := s.subs.RemoveSubscription(ctx, user, sub.Endpoint); err != nil {
		logger.Errorf("notify: drop subscription user=%s: %v", user, err)
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, user string) ([]model.Notification, error) {
	return s.store.NotificationsByUser(ctx, user)
}

// MarkAllRead flips the user's unread notifications.
func (s *Service) MarkAllRead(ctx context.Context, user string) error {
	return s.store.MarkNotificationsRead(ctx, user)
}
