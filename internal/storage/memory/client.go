package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sailchat/internal/storage"
)

const (
	sessionTTL     = 30 * 24 * time.Hour
	maxSubsPerUser = 10
)

type session struct {
	val storage.Session
	exp time.Time
}

type Client struct {
	mu       sync.RWMutex
	sessions map[string]session
	subs     map[string][]string
}

func New() *Client {
	return &Client{
		sessions: make(map[string]session),
		subs:     make(map[string][]string),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSession(ctx context.Context, token string, s storage.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[token] = session{val: s, exp: time.Now().Add(sessionTTL)}
	return nil
}

func (c *Client) GetSession(ctx context.Context, token string) (storage.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.sessions[token]
	if !ok || time.Now().After(v.exp) {
		return storage.Session{}, nil
	}
	return v.val, nil
}

func (c *Client) DeleteSession(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, token)
	return nil
}

func (c *Client) AddSubscription(ctx context.Context, userName, rawSub string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := append(c.subs[userName], rawSub)
	if len(list) > maxSubsPerUser {
		list = list[len(list)-maxSubsPerUser:]
	}
	c.subs[userName] = list
	return nil
}

func (c *Client) Subscriptions(ctx context.Context, userName string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := c.subs[userName]
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

func (c *Client) RemoveSubscription(ctx context.Context, userName, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kept []string
	for _, item := range c.subs[userName] {
		var sub struct {
			Endpoint string `json:"endpoint"`
		}
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint != endpoint {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		delete(c.subs, userName)
		return nil
	}
	c.subs[userName] = kept
	return nil
}
