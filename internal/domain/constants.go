package domain

import "time"

// Default configuration values
const (
	DefaultRemoteTimeout       = 5 * time.Second
	DefaultMessagePollInterval = 30 * time.Second
	DefaultCurrency            = "RUB"
)

// FallbackScope область действия демо-режима
type FallbackScope string

const (
	// FallbackScopeAppointment демо-режим включается для конкретной записи,
	// соседние записи сессии продолжают ходить в сервис расписаний
	FallbackScopeAppointment FallbackScope = "appointment"

	// FallbackScopeSession первый сбой переводит в демо-режим всю сессию
	FallbackScopeSession FallbackScope = "session"
)

// IsValid returns true if the scope is known
func (s FallbackScope) IsValid() bool {
	return s == FallbackScopeAppointment || s == FallbackScopeSession
}

// DataSourceMode источник данных для записи
type DataSourceMode string

const (
	ModeLive     DataSourceMode = "live"
	ModeFallback DataSourceMode = "fallback"
)

// Time format constants
const (
	DateTimeFormat = time.RFC3339
)
