package appointments

import "errors"

var (
	// ErrAccessDenied возвращается, когда пользователь не участник записи
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrConversationNotFound возвращается, когда у записи нет переписки
	ErrConversationNotFound = errors.New("conversation not found")
)
