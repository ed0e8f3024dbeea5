package appointments

import (
	"context"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/service/history"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/internal/service/policy"
)

// Executor исполнитель переходов одной сессии
type Executor interface {
	Load(ctx context.Context, appointmentID string) (*lifecycle.View, error)
	Current(ctx context.Context, appointmentID string) (*lifecycle.View, error)
	AvailableTransitions(ctx context.Context, appointmentID string, role domain.Role) ([]policy.Transition, error)
	History(ctx context.Context, appointmentID string) ([]history.Entry, error)
	RequestTransition(ctx context.Context, appointmentID string, target domain.ClientStatus, role domain.Role) (*lifecycle.View, error)
	InitiatePayment(ctx context.Context, appointmentID string, role domain.Role) (*lifecycle.PaymentInitiation, error)
	RecordPayment(ctx context.Context, appointmentID, paymentRef string) (*lifecycle.View, error)
	Close(ctx context.Context, appointmentID string) error
	AddObserver(o lifecycle.TransitionObserver)
}

// ExecutorFactory создает исполнитель для новой сессии
type ExecutorFactory func(sessionID string) Executor

// MessageSyncer синхронизатор переписки открытой записи
type MessageSyncer interface {
	Run(ctx context.Context)
	Messages() []domain.Message
	TransitionStarted(appointmentID string)
	TransitionFinished(appointmentID string)
}

// SyncerFactory создает синхронизатор переписки для загруженной записи.
// view.FallbackMode подсказывает, откуда брать сообщения.
type SyncerFactory func(view *lifecycle.View, readerID string) MessageSyncer

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
