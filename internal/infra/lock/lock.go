// Package lock сериализует переходы по одной записи.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockNotAcquired возвращается, когда по записи уже выполняется переход
var ErrLockNotAcquired = errors.New("lock: appointment lock not acquired")

// Locker защищает критическую секцию перехода для конкретной записи
type Locker interface {
	WithAppointmentLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Local блокировка в пределах процесса. Не ждёт освобождения: конкурирующий
// запрос сразу получает ErrLockNotAcquired.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal создает блокировку в памяти процесса
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) WithAppointmentLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()

	return fn(ctx)
}
