package lifecycle

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

var (
	// ErrAppointmentNotFound возвращается, когда сервис расписаний не знает запись
	ErrAppointmentNotFound = errors.New("lifecycle: appointment not found")

	// ErrRemoteRejected возвращается, когда сервис расписаний отказал в операции.
	// Отказ не переводит запись в демо-режим.
	ErrRemoteRejected = errors.New("lifecycle: scheduling service rejected the request")

	// ErrForbiddenTransition базовая ошибка для запрещённых переходов
	ErrForbiddenTransition = errors.New("lifecycle: transition is not allowed")

	// ErrTransitionInProgress возвращается, когда по записи уже выполняется переход
	ErrTransitionInProgress = errors.New("lifecycle: transition already in progress")

	// ErrStaleView возвращается, когда ответ пришёл после закрытия представления.
	// Результат отброшен, состояние не менялось.
	ErrStaleView = errors.New("lifecycle: view is no longer active")

	// ErrEstimatedCostRequired возвращается, когда для оплаты не указана стоимость
	ErrEstimatedCostRequired = errors.New("lifecycle: estimated cost is required before payment")

	// ErrPaymentNotAllowed возвращается, когда оплата в текущем статусе невозможна
	ErrPaymentNotAllowed = errors.New("lifecycle: payment is not allowed in current status")

	// ErrPaymentNotFound возвращается, когда платёж не найден у платёжного партнёра
	ErrPaymentNotFound = errors.New("lifecycle: payment not found")

	// ErrPaymentNotCompleted возвращается, когда платёж ещё не прошёл или принадлежит другой записи
	ErrPaymentNotCompleted = errors.New("lifecycle: payment is not completed")

	// ErrPaymentUnavailable возвращается при недоступности платёжного сервиса
	ErrPaymentUnavailable = errors.New("lifecycle: payment service unavailable")

	// ErrInternal возвращается при внутренних ошибках исполнителя
	ErrInternal = errors.New("lifecycle: internal error")
)

// ForbiddenTransitionError переход не входит в список доступных для роли
type ForbiddenTransitionError struct {
	From domain.ClientStatus
	To   domain.ClientStatus
	Role domain.Role
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("lifecycle: transition %s -> %s is not allowed for role %q", e.From, e.To, e.Role)
}

// Is позволяет сравнивать через errors.Is(err, ErrForbiddenTransition)
func (e *ForbiddenTransitionError) Is(target error) bool {
	return target == ErrForbiddenTransition
}
