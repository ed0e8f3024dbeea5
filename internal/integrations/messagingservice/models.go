package messagingservice

import (
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Message модель сообщения из сервиса переписки
type Message struct {
	ID       string     `json:"id"`
	SenderID string     `json:"senderId"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sentAt"`
	ReadAt   *time.Time `json:"readAt,omitempty"`
}

// MessageList ответ со списком сообщений
type MessageList struct {
	Messages []Message `json:"messages"`
}

// MarkReadRequest запрос на отметку сообщений прочитанными
type MarkReadRequest struct {
	ReaderID   string   `json:"readerId"`
	MessageIDs []string `json:"messageIds"`
}

// ToDomain конвертирует сообщение в доменную модель
func (m *Message) ToDomain(conversationID string) domain.Message {
	return domain.Message{
		ID:             m.ID,
		ConversationID: conversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		SentAt:         m.SentAt,
		ReadAt:         m.ReadAt,
	}
}
