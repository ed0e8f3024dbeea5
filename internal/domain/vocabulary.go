package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus базовая ошибка для нераспознанных статусов обоих словарей
var ErrUnknownStatus = errors.New("domain: unknown status")

// UnknownStatusError возвращается, когда значение не принадлежит словарю.
// Ошибка не фатальная: UI показывает нейтральный бейдж unknown.
type UnknownStatusError struct {
	Vocabulary string // "backend" или "client"
	Value      string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("domain: unknown %s status %q", e.Vocabulary, e.Value)
}

// Is позволяет сравнивать через errors.Is(err, ErrUnknownStatus)
func (e *UnknownStatusError) Is(target error) bool {
	return target == ErrUnknownStatus
}

// ToClientStatus переводит статус сервиса расписаний в клиентский словарь.
// CONFIRMED превращается в paid только при наличии оплаты.
func ToClientStatus(s BackendStatus, hasPayment bool) (ClientStatus, error) {
	switch s {
	case BackendRequested:
		return ClientPending, nil
	case BackendConfirmed:
		if hasPayment {
			return ClientPaid, nil
		}
		return ClientConfirmed, nil
	case BackendCompleted:
		return ClientCompleted, nil
	case BackendCancelled:
		return ClientCancelled, nil
	case BackendRescheduled:
		// Перенос моделируется как отмена и создание новой записи
		return ClientCancelled, nil
	}
	return "", &UnknownStatusError{Vocabulary: "backend", Value: string(s)}
}

// ToBackendStatus переводит клиентский статус в словарь сервиса расписаний
func ToBackendStatus(c ClientStatus) (BackendStatus, error) {
	switch c {
	case ClientPending:
		return BackendRequested, nil
	case ClientConfirmed, ClientPaid:
		return BackendConfirmed, nil
	case ClientCompleted:
		return BackendCompleted, nil
	case ClientCancelled, ClientRejected:
		return BackendCancelled, nil
	}
	return "", &UnknownStatusError{Vocabulary: "client", Value: string(c)}
}

// BadgeFor как ToClientStatus, но вместо ошибки возвращает ClientStatusUnknown
func BadgeFor(s BackendStatus, hasPayment bool) ClientStatus {
	c, err := ToClientStatus(s, hasPayment)
	if err != nil {
		return ClientStatusUnknown
	}
	return c
}

// ParseBackendStatus разбирает статус, пришедший по сети.
// Сервис расписаний присылает статусы в разном регистре, поэтому сравнение нечувствительно к регистру.
func ParseBackendStatus(raw string) (BackendStatus, error) {
	s := BackendStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", &UnknownStatusError{Vocabulary: "backend", Value: raw}
	}
	return s, nil
}

// ParseClientStatus разбирает клиентский статус из запроса UI
func ParseClientStatus(raw string) (ClientStatus, error) {
	c := ClientStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return "", &UnknownStatusError{Vocabulary: "client", Value: raw}
	}
	return c, nil
}

// ParseRole разбирает роль из заголовка запроса
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.IsValid() {
		return "", fmt.Errorf("domain: unknown role %q", raw)
	}
	return r, nil
}
