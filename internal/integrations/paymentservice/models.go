package paymentservice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// InitiateRequest запрос на создание платежа
type InitiateRequest struct {
	AppointmentID string          `json:"appointmentId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// Payment модель платежа из платёжного сервиса
type Payment struct {
	ID            string          `json:"id"`
	AppointmentID string          `json:"appointmentId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	RedirectURL   string          `json:"redirectUrl"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ToDomain конвертирует ответ в доменную модель
func (p *Payment) ToDomain() *domain.Payment {
	return &domain.Payment{
		ID:            p.ID,
		AppointmentID: p.AppointmentID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        domain.PaymentStatus(p.Status),
		RedirectURL:   p.RedirectURL,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}
