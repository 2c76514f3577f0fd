package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sailchat/internal/storage"
)

// Session TTL 30 дней; подписки живут столько же и продлеваются при каждом
// добавлении.
const (
	sessionTTL      = 30 * 24 * time.Hour
	subscriptionTTL = 30 * 24 * time.Hour
	maxSubsPerUser  = 10
)

const (
	sessionKeyPrefix = "session:"
	subsKeyPrefix    = "push:subs:"
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) SetSession(ctx context.Context, token string, s storage.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.cli.Set(ctx, sessionKeyPrefix+token, raw, sessionTTL).Err()
}

// GetSession возвращает сессию по токену; неизвестный токен — пустая сессия.
func (c *Client) GetSession(ctx context.Context, token string) (storage.Session, error) {
	val, err := c.cli.Get(ctx, sessionKeyPrefix+token).Result()
	if err == redis.Nil {
		return storage.Session{}, nil
	}
	if err != nil {
		return storage.Session{}, err
	}
	var s storage.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return storage.Session{}, err
	}
	return s, nil
}

func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.cli.Del(ctx, sessionKeyPrefix+token).Err()
}

// AddSubscription хранит подписки списком push:subs:{user}, не более
// maxSubsPerUser (старые вытесняются).
func (c *Client) AddSubscription(ctx context.Context, userName, rawSub string) error {
	key := subsKeyPrefix + userName
	pipe := c.cli.Pipeline()
	pipe.RPush(ctx, key, rawSub)
	pipe.LTrim(ctx, key, -maxSubsPerUser, -1)
	pipe.Expire(ctx, key, subscriptionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) Subscriptions(ctx context.Context, userName string) ([]string, error) {
	return c.cli.LRange(ctx, subsKeyPrefix+userName, 0, -1).Result()
}

func (c *Client) RemoveSubscription(ctx context.Context, userName, endpoint string) error {
	key := subsKeyPrefix + userName
	list, err := c.cli.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	var kept []string
	for _, item := range list {
		var sub struct {
			Endpoint string `json:"endpoint"`
		}
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint != endpoint {
			kept = append(kept, item)
		}
	}
	if err := c.cli.Del(ctx, key).Err(); err != nil {
		return err
	}
	if len(kept) == 0 {
		return nil
	}
	for _, v := range kept {
		if err := c.cli.RPush(ctx, key, v).Err(); err != nil {
			return err
		}
	}
	return c.cli.Expire(ctx, key, subscriptionTTL).Err()
}

// FlushDB очищает текущую БД Redis (сброс сессий и подписок при тестах).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
