package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) InsertMessage(ctx context.Context, m *model.ChatMessage) error {
	defer logger.DeferLogDuration("message.InsertMessage", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_messages (chat_message_id, chat_id, from_user, to_user, message_type, message_body, read_flag, agreement_status, time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ChatMessageID, m.ChatID, m.From, m.To, int(m.MessageType), m.MessageBody, m.ReadFlag, m.AgreementStatus, m.Time,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.InsertMessage: %w", err)
	}
	return nil
}

// MarkMessageRead flips a single message read. Already-read rows are a no-op,
// so concurrent viewers cannot double-flip.
func (r *MessageRepository) MarkMessageRead(ctx context.Context, chatMessageID string) error {
	defer logger.DeferLogDuration("message.MarkMessageRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_messages SET read_flag = true WHERE chat_message_id = $1 AND read_flag = false`,
		chatMessageID,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.MarkMessageRead: %w", err)
	}
	return nil
}

// MarkChatRead flips every unread message addressed to user in the chat.
func (r *MessageRepository) MarkChatRead(ctx context.Context, chatID, user string) error {
	defer logger.DeferLogDuration("message.MarkChatRead", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE chat_messages SET read_flag = true
		 WHERE chat_id = $1 AND to_user = $2 AND read_flag = false`,
		chatID, user,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.MarkChatRead: %w", err)
	}
	return nil
}

func (r *MessageRepository) MessagesByChat(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	defer logger.DeferLogDuration("message.MessagesByChat", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT chat_message_id, chat_id, from_user, to_user, message_type, message_body, read_flag, agreement_status, time
		 FROM chat_messages WHERE chat_id = $1
		 ORDER BY time ASC`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.MessagesByChat query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.ChatMessage, 0, 32)
	for rows.Next() {
		var m model.ChatMessage
		var msgType int
		if err := rows.Scan(&m.ChatMessageID, &m.ChatID, &m.From, &m.To, &msgType, &m.MessageBody, &m.ReadFlag, &m.AgreementStatus, &m.Time); err != nil {
			return nil, fmt.Errorf("messageRepo.MessagesByChat scan: %w", err)
		}
		m.MessageType = model.MessageType(msgType)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messageRepo.MessagesByChat rows: %w", err)
	}
	return messages, nil
}
