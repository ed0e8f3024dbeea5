package models

import (
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/history"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/internal/service/policy"
)

// Caller участник, от имени которого выполняется запрос
type Caller struct {
	SessionID string
	UserID    string
	Role      domain.Role
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`        // клиентский статус
	BackendStatus   string                 `json:"backendStatus"` // статус сервиса расписаний
	ScheduledAt     string                 `json:"scheduledAt"`
	EndAt           string                 `json:"endAt"`
	EstimatedCost   *string                `json:"estimatedCost,omitempty"`
	ClientID        string                 `json:"clientId"`
	ProfessionalID  string                 `json:"professionalId"`
	PaymentRef      *string                `json:"paymentRef,omitempty"`
	ConversationRef *string                `json:"conversationRef,omitempty"`
	Payment         *PaymentResponse       `json:"payment,omitempty"`
	History         []HistoryEntryResponse `json:"history"`
	IsFallbackMode  bool                   `json:"isFallbackMode"`
	CreatedAt       string                 `json:"createdAt"`
	UpdatedAt       string                 `json:"updatedAt"`
}

// PaymentResponse данные платежа
type PaymentResponse struct {
	ID          string  `json:"id"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
	RedirectURL string  `json:"redirectUrl,omitempty"`
	PaidAt      *string `json:"paidAt,omitempty"`
}

// HistoryEntryResponse событие истории записи
type HistoryEntryResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// HistoryResponse история записи
type HistoryResponse struct {
	AppointmentID  string                 `json:"appointmentId"`
	Entries        []HistoryEntryResponse `json:"entries"`
	IsFallbackMode bool                   `json:"isFallbackMode"`
}

// TransitionResponse доступный переход
type TransitionResponse struct {
	TargetStatus string `json:"targetStatus"`
	Label        string `json:"label"`
	SideEffect   string `json:"sideEffect"`
}

// TransitionsResponse список доступных переходов
type TransitionsResponse struct {
	AppointmentID string               `json:"appointmentId"`
	CurrentStatus string               `json:"currentStatus"`
	Role          string               `json:"role"`
	Transitions   []TransitionResponse `json:"transitions"`
}

// PaymentInitiationResponse результат запуска оплаты
type PaymentInitiationResponse struct {
	Payment     *PaymentResponse     `json:"payment"`
	Appointment *AppointmentResponse `json:"appointment"`
}

// MessageResponse сообщение переписки
type MessageResponse struct {
	ID       string  `json:"id"`
	SenderID string  `json:"senderId"`
	Body     string  `json:"body"`
	SentAt   string  `json:"sentAt"`
	ReadAt   *string `json:"readAt,omitempty"`
	Incoming bool    `json:"incoming"`
}

// MessagesResponse переписка по записи
type MessagesResponse struct {
	AppointmentID  string            `json:"appointmentId"`
	ConversationID string            `json:"conversationId"`
	Messages       []MessageResponse `json:"messages"`
}

// Конвертеры из domain моделей в response модели

// FromView конвертирует представление исполнителя в AppointmentResponse
func FromView(v *lifecycle.View) *AppointmentResponse {
	appt := v.Appointment

	resp := &AppointmentResponse{
		ID:              appt.ID,
		Status:          string(v.ClientStatus()),
		BackendStatus:   string(appt.Status),
		ScheduledAt:     formatTime(appt.ScheduledAt),
		EndAt:           formatTime(appt.EndAt),
		ClientID:        appt.ClientID,
		ProfessionalID:  appt.ProfessionalID,
		PaymentRef:      appt.PaymentRef,
		ConversationRef: appt.ConversationRef,
		Payment:         FromDomainPayment(v.Payment),
		History:         FromHistory(v.History),
		IsFallbackMode:  v.FallbackMode,
		CreatedAt:       formatTime(appt.CreatedAt),
		UpdatedAt:       formatTime(appt.UpdatedAt),
	}
	if appt.EstimatedCost.Valid {
		cost := appt.EstimatedCost.Decimal.StringFixed(2)
		resp.EstimatedCost = &cost
	}
	return resp
}

// FromDomainPayment конвертирует domain.Payment в PaymentResponse
func FromDomainPayment(p *domain.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:          p.ID,
		Amount:      p.Amount.StringFixed(2),
		Currency:    p.Currency,
		Status:      string(p.Status),
		RedirectURL: p.RedirectURL,
		PaidAt:      formatTimePtr(p.PaidAt),
	}
}

// FromHistory конвертирует историю записи
func FromHistory(entries []history.Entry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			Status:      string(e.Status),
			Timestamp:   formatTime(e.Timestamp),
			Title:       e.Title,
			Description: e.Description,
		})
	}
	return out
}

// FromTransitions конвертирует доступные переходы
func FromTransitions(transitions []policy.Transition) []TransitionResponse {
	out := make([]TransitionResponse, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, TransitionResponse{
			TargetStatus: string(t.Target),
			Label:        t.Label,
			SideEffect:   string(t.SideEffect),
		})
	}
	return out
}

// FromMessages конвертирует переписку. Входящими считаются сообщения не от readerID.
func FromMessages(messages []domain.Message, readerID string) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageResponse{
			ID:       m.ID,
			SenderID: m.SenderID,
			Body:     m.Body,
			SentAt:   formatTime(m.SentAt),
			ReadAt:   formatTimePtr(m.ReadAt),
			Incoming: m.SenderID != readerID,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	return t.Format(domain.DateTimeFormat)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
