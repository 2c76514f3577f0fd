package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sailchat/internal/config"
)

// Sender delivers chat fallback mail over SMTP. Threading uses standard
// Message-ID/In-Reply-To/References headers so every mail of one chat lands
// in one conversation in the buyer's client.
type Sender struct {
	cfg *config.SMTPConfig
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// SendWithDisplayName sends one mail under the given From display name
// (e.g. "Jane via SailMarket <noreply@...>"). threadID is the Message-ID of
// the thread root; empty starts a new thread. The returned id identifies the
// thread for subsequent sends.
func (s *Sender) SendWithDisplayName(ctx context.Context, displayName string, to []string, subject, body, threadID string) (string, error) {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return "", fmt.Errorf("email: SMTP не настроен")
	}
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	if displayName == "" {
		displayName = s.cfg.FromName + " <" + from + ">"
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), s.cfg.Host)
	var buf bytes.Buffer
	buf.WriteString("From: " + displayName + "\r\n")
	for _, rcpt := range to {
		buf.WriteString("To: " + rcpt + "\r\n")
	}
	buf.WriteString("Subject: " + subject + "\r\n")
	buf.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("Message-ID: " + messageID + "\r\n")
	if threadID != "" {
		buf.WriteString("In-Reply-To: " + threadID + "\r\n")
		buf.WriteString("References: " + threadID + "\r\n")
	}
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, from, to, buf.Bytes()) }()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			return "", err
		}
	}
	if threadID != "" {
		return threadID, nil
	}
	return messageID, nil
}

// SendTest отправляет тестовое письмо на to для проверки SMTP.
func (s *Sender) SendTest(ctx context.Context, to string) error {
	body := fmt.Sprintf("SMTP test %d", time.Now().Unix()%10000)
	_, err := s.SendWithDisplayName(ctx, "", []string{to}, "SMTP test", body, "")
	return err
}
