package lifecycle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/storage/snapshot"
)

// SchedulingClient интерфейс клиента сервиса расписаний
type SchedulingClient interface {
	GetAppointment(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	Confirm(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	Complete(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	Cancel(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	PartialUpdate(ctx context.Context, appointmentID string, status domain.BackendStatus) (*domain.Appointment, error)
}

// PaymentClient интерфейс клиента платёжного сервиса
type PaymentClient interface {
	Initiate(ctx context.Context, appointmentID string, amount decimal.Decimal, currency string) (*domain.Payment, error)
	GetPayment(ctx context.Context, paymentRef string) (*domain.Payment, error)
}

// FallbackStore генератор данных демо-режима
type FallbackStore interface {
	Appointment(seed string) *domain.Appointment
	Payment(seed string, amount decimal.Decimal) *domain.Payment
}

// SnapshotStore хранилище последних известных состояний записей сессии
type SnapshotStore interface {
	Get(ctx context.Context, sessionID, appointmentID string) (*snapshot.Snapshot, error)
	Save(ctx context.Context, sessionID string, snap *snapshot.Snapshot) error
	Delete(ctx context.Context, sessionID, appointmentID string) error
}

// Locker сериализует переходы по одной записи
type Locker interface {
	WithAppointmentLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Metrics приёмник метрик исполнителя
type Metrics interface {
	RecordTransition(target, mode, result string)
	RecordFallback(scope string)
	RecordRemoteCall(operation, result string)
}

// TransitionObserver получает уведомления о начале и конце перехода.
// Опрос сообщений приостанавливается на время перехода.
type TransitionObserver interface {
	TransitionStarted(appointmentID string)
	TransitionFinished(appointmentID string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

type noopMetrics struct{}

func (noopMetrics) RecordTransition(string, string, string) {}
func (noopMetrics) RecordFallback(string)                   {}
func (noopMetrics) RecordRemoteCall(string, string)         {}
