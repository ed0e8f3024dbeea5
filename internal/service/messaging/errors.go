package messaging

import "errors"

var (
	// ErrStalePoll возвращается, когда во время опроса начался переход по записи.
	// Ответ отброшен, чтобы не перемешать его с результатом перехода.
	ErrStalePoll = errors.New("messaging: poll result dropped")

	// ErrSyncFailed возвращается, когда сервис сообщений недоступен
	ErrSyncFailed = errors.New("messaging: sync failed")
)
