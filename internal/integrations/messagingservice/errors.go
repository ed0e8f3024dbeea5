package messagingservice

import "errors"

var (
	// ErrConversationNotFound возвращается, когда переписка не найдена
	ErrConversationNotFound = errors.New("messagingservice: conversation not found")

	// ErrUnavailable возвращается при недоступности сервиса переписки
	ErrUnavailable = errors.New("messagingservice: service unavailable")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("messagingservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("messagingservice client: invalid response")
)
