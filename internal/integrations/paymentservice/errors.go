package paymentservice

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платёж не найден
	ErrPaymentNotFound = errors.New("paymentservice: payment not found")

	// ErrRejected возвращается, когда платёжный сервис отклонил запрос
	ErrRejected = errors.New("paymentservice: request rejected")

	// ErrUnavailable возвращается при недоступности платёжного сервиса
	ErrUnavailable = errors.New("paymentservice: service unavailable")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("paymentservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("paymentservice client: invalid response")
)
