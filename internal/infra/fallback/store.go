// Package fallback генерирует правдоподобные данные для демо-режима,
// когда сервис расписаний недоступен.
//
// Все генераторы детерминированы: одинаковые (kind, seed) внутри одного Store
// дают одинаковый результат. Форма данных совпадает с ответами живого сервиса.
package fallback

import (
	"hash/fnv"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Kind вид синтезируемой сущности
type Kind string

const (
	KindAppointment  Kind = "appointment"
	KindPayment      Kind = "payment"
	KindConversation Kind = "conversation"
	KindMessage      Kind = "message"
	KindParticipant  Kind = "participant"
)

const (
	minCost = 1500
	maxCost = 15000
)

var namespace = uuid.MustParse("6f1c2a9e-3d4b-5c6d-8e7f-0a1b2c3d4e5f")

var messageBodies = []string{
	"Здравствуйте! Подскажите, во сколько вам удобно?",
	"Добрый день, подтверждаю время визита.",
	"Нужно ли что-то подготовить к приходу мастера?",
	"Буду на месте за 10 минут до начала.",
	"Спасибо, всё понятно.",
	"Можно ли перенести на час позже?",
	"Стоимость материалов включена в смету.",
}

// Store детерминированный генератор данных демо-режима
type Store struct {
	anchor   time.Time
	currency string
}

// NewStore создает генератор. anchor фиксирует "текущее время" сессии,
// относительно которого строятся все даты.
func NewStore(anchor time.Time, currency string) *Store {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &Store{
		anchor:   anchor.UTC().Truncate(time.Minute),
		currency: currency,
	}
}

// Appointment синтезирует запись с идентификатором seed в статусе REQUESTED
func (s *Store) Appointment(seed string) *domain.Appointment {
	f := faker(KindAppointment, seed)

	base := s.anchor.Truncate(time.Hour)
	createdAt := base.Add(-time.Duration(f.Number(1, 72)) * time.Hour)
	scheduledAt := base.
		Add(time.Duration(f.Number(1, 14)) * 24 * time.Hour).
		Add(time.Duration(f.Number(0, 8)) * time.Hour)
	endAt := scheduledAt.Add(time.Duration(f.Number(1, 4)) * 30 * time.Minute)

	cost := decimal.NewFromFloat(f.Price(minCost, maxCost)).Round(0)
	conversationRef := s.Conversation(seed).ID

	return &domain.Appointment{
		ID:              seed,
		Status:          domain.BackendRequested,
		ScheduledAt:     scheduledAt,
		EndAt:           endAt,
		EstimatedCost:   decimal.NewNullDecimal(cost),
		ClientID:        id(KindParticipant, "client:"+seed),
		ProfessionalID:  id(KindParticipant, "professional:"+seed),
		ConversationRef: &conversationRef,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

// Payment синтезирует успешный платёж по записи seed
func (s *Store) Payment(seed string, amount decimal.Decimal) *domain.Payment {
	paymentID := id(KindPayment, seed)
	return &domain.Payment{
		ID:            paymentID,
		AppointmentID: seed,
		Amount:        amount,
		Currency:      s.currency,
		Status:        domain.PaymentSucceeded,
		RedirectURL:   "demo://payments/" + paymentID,
		CreatedAt:     s.anchor,
	}
}

// Conversation синтезирует переписку по записи seed
func (s *Store) Conversation(seed string) *domain.Conversation {
	return &domain.Conversation{
		ID:            id(KindConversation, seed),
		AppointmentID: seed,
		ParticipantIDs: []string{
			id(KindParticipant, "client:"+seed),
			id(KindParticipant, "professional:"+seed),
		},
		CreatedAt: s.anchor,
	}
}

// Messages синтезирует n сообщений переписки conv, упорядоченных по времени.
// Отправители чередуются между участниками переписки. Если участников
// меньше двух, недостающие генерируются из идентификатора переписки.
func (s *Store) Messages(conv *domain.Conversation, n int) []domain.Message {
	if n <= 0 {
		return []domain.Message{}
	}
	conversationID := conv.ID
	f := faker(KindMessage, conversationID)
	senders := messageSenders(conv)

	messages := make([]domain.Message, n)
	sentAt := s.anchor
	for i := n - 1; i >= 0; i-- {
		sentAt = sentAt.Add(-time.Duration(f.Number(5, 90)) * time.Minute)
		body := messageBodies[f.Number(0, len(messageBodies)-1)]
		if i == 0 {
			body = f.Name() + ": " + body
		}
		messages[i] = domain.Message{
			ID:             id(KindMessage, conversationID+":"+strconv.Itoa(i)),
			ConversationID: conversationID,
			SenderID:       senders[i%2],
			Body:           body,
			SentAt:         sentAt,
		}
	}
	return messages
}

func messageSenders(conv *domain.Conversation) []string {
	out := make([]string, 0, 2)
	for _, p := range conv.ParticipantIDs {
		if p != "" && len(out) < 2 {
			out = append(out, p)
		}
	}
	for i := len(out); i < 2; i++ {
		out = append(out, id(KindParticipant, "sender-"+strconv.Itoa(i)+":"+conv.ID))
	}
	return out
}

// faker возвращает генератор, зависящий только от (kind, seed)
func faker(kind Kind, seed string) *gofakeit.Faker {
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(kind) + ":" + seed))
	sum := h.Sum64()
	if sum == 0 {
		// 0 означает случайный seed
		sum = 1
	}
	return gofakeit.New(sum)
}

func id(kind Kind, seed string) string {
	return uuid.NewSHA1(namespace, []byte(string(kind)+":"+seed)).String()
}
