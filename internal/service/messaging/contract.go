package messaging

import (
	"context"
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// MessagingClient интерфейс клиента сервиса сообщений
type MessagingClient interface {
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, messageIDs []string) error
}

// Notifier доставляет пользовательские уведомления
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Metrics приёмник метрик синхронизации
type Metrics interface {
	RecordMessages(n int)
	RecordNotification(err error)
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

func (noopMetrics) RecordMessages(int)       {}
func (noopMetrics) RecordNotification(error) {}
