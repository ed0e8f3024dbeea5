package schedulingservice

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAppointmentNotFound возвращается, когда сервис расписаний не знает такую запись
	ErrAppointmentNotFound = errors.New("schedulingservice: appointment not found")

	// ErrTransport базовая ошибка транспорта: сеть, таймаут, 5xx, 408, 429, битый ответ.
	// Исполнитель переходов воспринимает её как сигнал к демо-режиму.
	ErrTransport = errors.New("schedulingservice: transport error")

	// ErrRejected базовая ошибка отказа сервиса расписаний (4xx кроме 404, 408, 429)
	ErrRejected = errors.New("schedulingservice: request rejected")
)

// TransportError подробности сбоя вызова сервиса расписаний
type TransportError struct {
	Op         string
	StatusCode int // 0, если ответа не было
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("schedulingservice: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("schedulingservice: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать через errors.Is(err, ErrTransport)
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IsTransport returns true if err should switch the caller to fallback mode
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// RejectedError сервис расписаний ответил, но отказал в операции
type RejectedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("schedulingservice: %s: rejected with status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is позволяет сравнивать через errors.Is(err, ErrRejected)
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// isTransportStatus коды ответа, которые считаются сбоем, а не отказом
func isTransportStatus(code int) bool {
	return code >= http.StatusInternalServerError ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}
