package schedulingservice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Appointment модель записи из сервиса расписаний
type Appointment struct {
	ID              string           `json:"id"`
	Status          string           `json:"status"` // REQUESTED, CONFIRMED, COMPLETED, CANCELLED, RESCHEDULED
	ScheduledAt     time.Time        `json:"scheduledAt"`
	EndAt           time.Time        `json:"endAt"`
	EstimatedCost   *decimal.Decimal `json:"estimatedCost,omitempty"`
	ClientID        string           `json:"clientId"`
	ProfessionalID  string           `json:"professionalId"`
	PaymentRef      *string          `json:"paymentRef,omitempty"`
	ConversationRef *string          `json:"conversationRef,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// PartialUpdateRequest тело PATCH запроса
type PartialUpdateRequest struct {
	Status string `json:"status"`
}

// ErrorResponse модель ошибки от сервиса расписаний
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToDomain конвертирует ответ сервиса в доменную модель.
// Неизвестный статус возвращает *domain.UnknownStatusError.
func (a *Appointment) ToDomain() (*domain.Appointment, error) {
	status, err := domain.ParseBackendStatus(a.Status)
	if err != nil {
		return nil, err
	}

	appt := &domain.Appointment{
		ID:              a.ID,
		Status:          status,
		ScheduledAt:     a.ScheduledAt,
		EndAt:           a.EndAt,
		ClientID:        a.ClientID,
		ProfessionalID:  a.ProfessionalID,
		PaymentRef:      a.PaymentRef,
		ConversationRef: a.ConversationRef,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.EstimatedCost != nil {
		appt.EstimatedCost = decimal.NewNullDecimal(*a.EstimatedCost)
	}
	return appt, nil
}

// FromDomain конвертирует доменную модель в модель сервиса (используется в тестах и заглушках)
func FromDomain(a *domain.Appointment) *Appointment {
	resp := &Appointment{
		ID:              a.ID,
		Status:          string(a.Status),
		ScheduledAt:     a.ScheduledAt,
		EndAt:           a.EndAt,
		ClientID:        a.ClientID,
		ProfessionalID:  a.ProfessionalID,
		PaymentRef:      a.PaymentRef,
		ConversationRef: a.ConversationRef,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.EstimatedCost.Valid {
		cost := a.EstimatedCost.Decimal
		resp.EstimatedCost = &cost
	}
	return resp
}
