package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

const chatCols = `chat_id, user1, user2, status, sail_id, mail_thread_id, last_message_time`

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func scanChat(row pgx.Row) (*model.Chat, error) {
	c := &model.Chat{}
	var status int
	err := row.Scan(&c.ChatID, &c.User1, &c.User2, &status, &c.SailID, &c.MailThreadID, &c.LastMessageTime)
	if err != nil {
		return nil, err
	}
	c.Status = model.ChatStatus(status)
	return c, nil
}

func (r *ChatRepository) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetChat", time.Now())()
	c, err := scanChat(r.pool.QueryRow(ctx,
		`SELECT `+chatCols+` FROM chats WHERE chat_id = $1`, chatID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetChat: %w", err)
	}
	return c, nil
}

// FindChatBetween looks the pair up in either column order; only direct
// (sail-less) rooms qualify.
func (r *ChatRepository) FindChatBetween(ctx context.Context, userA, userB string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.FindChatBetween", time.Now())()
	c, err := scanChat(r.pool.QueryRow(ctx,
		`SELECT `+chatCols+` FROM chats
		 WHERE sail_id IS NULL
		   AND ((user1 = $1 AND user2 = $2) OR (user1 = $2 AND user2 = $1))`,
		userA, userB,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.FindChatBetween: %w", err)
	}
	return c, nil
}

func (r *ChatRepository) ChatsBySail(ctx context.Context, sailID string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.ChatsBySail", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatCols+` FROM chats WHERE sail_id = $1`, sailID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ChatsBySail query: %w", err)
	}
	return collectChats(rows, "chatRepo.ChatsBySail")
}

func (r *ChatRepository) ChatsByUser(ctx context.Context, user string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.ChatsByUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatCols+` FROM chats
		 WHERE user1 = $1 OR user2 = $1
		 ORDER BY last_message_time DESC`, user,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ChatsByUser query: %w", err)
	}
	return collectChats(rows, "chatRepo.ChatsByUser")
}

// ChatsByOwner returns sail chats running over properties the user owns.
func (r *ChatRepository) ChatsByOwner(ctx context.Context, owner string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.ChatsByOwner", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.chat_id, c.user1, c.user2, c.status, c.sail_id, c.mail_thread_id, c.last_message_time
		 FROM chats c
		 JOIN sails s ON s.sail_id = c.sail_id
		 JOIN properties p ON p.property_id = s.property
		 WHERE p.owner = $1 AND c.user1 != $1 AND c.user2 != $1
		 ORDER BY c.last_message_time DESC`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ChatsByOwner query: %w", err)
	}
	return collectChats(rows, "chatRepo.ChatsByOwner")
}

func collectChats(rows pgx.Rows, op string) ([]model.Chat, error) {
	defer rows.Close()
	chats := make([]model.Chat, 0, 16)
	for rows.Next() {
		var c model.Chat
		var status int
		if err := rows.Scan(&c.ChatID, &c.User1, &c.User2, &status, &c.SailID, &c.MailThreadID, &c.LastMessageTime); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		c.Status = model.ChatStatus(status)
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return chats, nil
}

func (r *ChatRepository) InsertChat(ctx context.Context, c *model.Chat) error {
	defer logger.DeferLogDuration("chat.InsertChat", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chats (chat_id, user1, user2, status, sail_id, mail_thread_id, last_message_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ChatID, c.User1, c.User2, int(c.Status), c.SailID, c.MailThreadID, c.LastMessageTime,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.InsertChat: %w", err)
	}
	return nil
}

// UpdateChat applies a partial update; nil patch fields keep the stored value.
func (r *ChatRepository) UpdateChat(ctx context.Context, p model.ChatPatch) error {
	defer logger.DeferLogDuration("chat.UpdateChat", time.Now())()
	var status *int
	if p.Status != nil {
		v := int(*p.Status)
		status = &v
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats SET
		   status = COALESCE($2, status),
		   sail_id = COALESCE($3, sail_id),
		   mail_thread_id = COALESCE($4, mail_thread_id),
		   last_message_time = COALESCE($5, last_message_time)
		 WHERE chat_id = $1`,
		p.ChatID, status, p.SailID, p.MailThreadID, p.LastMessageTime,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.UpdateChat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnread counts messages addressed to user in the chat that nobody has
// marked read yet.
func (r *ChatRepository) CountUnread(ctx context.Context, chatID, user string) (int, error) {
	defer logger.DeferLogDuration("chat.CountUnread", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_messages
		 WHERE chat_id = $1 AND to_user = $2 AND read_flag = false`,
		chatID, user,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.CountUnread: %w", err)
	}
	return count, nil
}

// CountChatsWithUnread counts distinct chats holding unread messages for user.
func (r *ChatRepository) CountChatsWithUnread(ctx context.Context, user string) (int, error) {
	defer logger.DeferLogDuration("chat.CountChatsWithUnread", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT chat_id) FROM chat_messages
		 WHERE to_user = $1 AND read_flag = false`,
		user,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.CountChatsWithUnread: %w", err)
	}
	return count, nil
}
