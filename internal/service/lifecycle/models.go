package lifecycle

import (
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/history"
)

// Options настройки исполнителя
type Options struct {
	// SessionID идентификатор сессии, к которой привязаны снимки и режим
	SessionID string

	// RemoteTimeout таймаут одного обращения к сервису расписаний
	RemoteTimeout time.Duration

	// FallbackScope область действия демо-режима
	FallbackScope domain.FallbackScope

	// Currency валюта платежей
	Currency string
}

func (o Options) withDefaults() Options {
	if o.RemoteTimeout <= 0 {
		o.RemoteTimeout = domain.DefaultRemoteTimeout
	}
	if !o.FallbackScope.IsValid() {
		o.FallbackScope = domain.FallbackScopeAppointment
	}
	if o.Currency == "" {
		o.Currency = domain.DefaultCurrency
	}
	return o
}

// View состояние записи для отображения
type View struct {
	Appointment  *domain.Appointment
	Payment      *domain.Payment
	History      []history.Entry
	FallbackMode bool
	// Synthetic данные записи сгенерированы локально, а не получены от сервиса расписаний
	Synthetic bool
}

// ClientStatus клиентский статус записи
func (v *View) ClientStatus() domain.ClientStatus {
	return v.Appointment.ClientVisibleStatus()
}

// PaymentInitiation результат запуска оплаты
type PaymentInitiation struct {
	Payment *domain.Payment
	View    *View
}
