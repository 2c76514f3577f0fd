package model

import "time"

// Notification is a non-chat application notice pushed over the user's live
// connections and listed on the bell menu.
type Notification struct {
	NotificationID string    `json:"notification_id"`
	User           string    `json:"user"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
	ReadFlag       bool      `json:"read_flag"`
}
