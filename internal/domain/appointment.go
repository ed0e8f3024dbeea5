package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Appointment запись клиента к специалисту
type Appointment struct {
	ID     string
	Status BackendStatus

	ScheduledAt time.Time
	EndAt       time.Time

	// Стоимость обязательна до переходов, запускающих оплату
	EstimatedCost decimal.NullDecimal

	ClientID       string
	ProfessionalID string

	PaymentRef      *string
	ConversationRef *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPayment returns true if a payment reference is attached
func (a *Appointment) HasPayment() bool {
	return a.PaymentRef != nil && *a.PaymentRef != ""
}

// HasEstimatedCost returns true if the cost is known and positive
func (a *Appointment) HasEstimatedCost() bool {
	return a.EstimatedCost.Valid && a.EstimatedCost.Decimal.IsPositive()
}

// ClientVisibleStatus всегда вычисляется из (Status, наличие оплаты) и нигде не хранится
func (a *Appointment) ClientVisibleStatus() ClientStatus {
	return BadgeFor(a.Status, a.HasPayment())
}

// IsTerminal returns true if the appointment is completed or cancelled
func (a *Appointment) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// Clone возвращает глубокую копию, чтобы кэш исполнителя не делил указатели с вызывающим кодом
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	if a.PaymentRef != nil {
		ref := *a.PaymentRef
		c.PaymentRef = &ref
	}
	if a.ConversationRef != nil {
		ref := *a.ConversationRef
		c.ConversationRef = &ref
	}
	return &c
}

// PaymentStatus статус платежа у платёжного партнёра
type PaymentStatus string

const (
	PaymentInitiated PaymentStatus = "initiated"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment платёж по записи
type Payment struct {
	ID            string
	AppointmentID string
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	RedirectURL   string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

// Conversation переписка по записи (связь только через ConversationRef)
type Conversation struct {
	ID             string
	AppointmentID  string
	ParticipantIDs []string
	CreatedAt      time.Time
}

// Message сообщение в переписке
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	SentAt         time.Time
	ReadAt         *time.Time
}

// IsRead returns true if the message has been read by the recipient
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// Notification пользовательское уведомление о новом сообщении
type Notification struct {
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}
