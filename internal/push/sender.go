// Package push отправляет Web Push уведомления (VAPID) по сохранённым
// браузерным подпискам.
package push

import (
	"context"
	"encoding/json"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Subscription — подписка из браузера.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Payload is the JSON the service worker receives.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender sends Web Push messages. A nil Sender (no VAPID keys configured) is
// a no-op: subscriptions keep being stored, nothing is sent.
type Sender struct {
	opts *webpush.Options
}

func NewSender(subscriber, vapidPublicKey, vapidPrivateKey string) *Sender {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil
	}
	return &Sender{opts: &webpush.Options{
		Subscriber:      subscriber,
		VAPIDPublicKey:  vapidPublicKey,
		VAPIDPrivateKey: vapidPrivateKey,
		TTL:             30,
	}}
}

// Send pushes the payload to one subscription. gone=true means the endpoint
// rejected the subscription permanently (410/404) and the caller should drop it.
func (s *Sender) Send(ctx context.Context, rawSub string, p Payload) (gone bool, err error) {
	if s == nil {
		return false, nil
	}
	var sub Subscription
	if err := json.Unmarshal([]byte(rawSub), &sub); err != nil {
		return true, err
	}
	if sub.Endpoint == "" {
		return true, nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return false, err
	}
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, wpSub, s.opts)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	if resp.StatusCode == 410 || resp.StatusCode == 404 {
		return true, nil
	}
	return false, nil
}
