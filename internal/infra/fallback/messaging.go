package fallback

import (
	"context"
	"sync"
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// DemoMessageCount число сообщений в синтезированной переписке
const DemoMessageCount = 6

// Messaging клиент переписки для демо-режима. Сообщения синтезируются Store,
// отметки о прочтении хранятся в памяти процесса.
type Messaging struct {
	store *Store
	now   func() time.Time

	mu            sync.Mutex
	readAt        map[string]time.Time
	conversations map[string]*domain.Conversation
}

// NewMessaging создает демо-клиент переписки поверх store
func NewMessaging(store *Store) *Messaging {
	return &Messaging{
		store:         store,
		now:           time.Now,
		readAt:        make(map[string]time.Time),
		conversations: make(map[string]*domain.Conversation),
	}
}

// Open регистрирует переписку записи: демо-сообщения пишут её участники.
// Запись без переписки игнорируется.
func (m *Messaging) Open(appt *domain.Appointment) {
	if appt == nil || appt.ConversationRef == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations[*appt.ConversationRef] = &domain.Conversation{
		ID:             *appt.ConversationRef,
		AppointmentID:  appt.ID,
		ParticipantIDs: []string{appt.ClientID, appt.ProfessionalID},
	}
}

// ListMessages возвращает синтезированную переписку с локальными отметками о прочтении
func (m *Messaging) ListMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		conv = &domain.Conversation{ID: conversationID}
	}
	messages := m.store.Messages(conv, DemoMessageCount)

	for i := range messages {
		if t, ok := m.readAt[messages[i].ID]; ok {
			readAt := t
			messages[i].ReadAt = &readAt
		}
	}
	return messages, nil
}

// MarkRead запоминает время прочтения сообщений
func (m *Messaging) MarkRead(_ context.Context, _, _ string, messageIDs []string) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range messageIDs {
		if _, ok := m.readAt[id]; !ok {
			m.readAt[id] = now
		}
	}
	return nil
}
