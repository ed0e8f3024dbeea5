// Package history восстанавливает историю записи по её текущему состоянию.
//
// Журнал переходов нигде не хранится: история синтезируется из статуса и
// временных меток. Промежуточные метки приблизительные (берётся UpdatedAt).
package history

import (
	"sort"
	"time"

	"github.com/m04kA/SMC-LifecycleService/internal/domain"
)

// Entry событие истории записи
type Entry struct {
	Status      domain.ClientStatus
	Timestamp   time.Time
	Title       string
	Description string
}

type template struct {
	title       string
	description string
}

var templates = map[domain.ClientStatus]template{
	domain.ClientConfirmed: {"Запись подтверждена", "Специалист подтвердил время визита"},
	domain.ClientPaid:      {"Запись оплачена", "Оплата получена платёжным партнёром"},
	domain.ClientCompleted: {"Услуга оказана", "Специалист отметил запись выполненной"},
	domain.ClientCancelled: {"Запись отменена", "Запись отменена одним из участников"},
	domain.ClientRejected:  {"Запись отклонена", "Специалист отклонил запрос"},
}

// Build возвращает упорядоченную по времени историю записи.
// payment может быть nil; если у платежа есть PaidAt, событие paid получает эту метку.
func Build(appt *domain.Appointment, payment *domain.Payment) []Entry {
	if appt == nil {
		return []Entry{}
	}

	entries := []Entry{{
		Status:      domain.ClientPending,
		Timestamp:   appt.CreatedAt,
		Title:       "Запись создана",
		Description: "Клиент отправил запрос на запись",
	}}

	for _, status := range impliedStatuses(appt) {
		entries = append(entries, newEntry(status, timestampFor(status, appt, payment)))
	}

	// Исходные метки могут противоречить друг другу (оплата позже завершения,
	// UpdatedAt раньше CreatedAt). Подтягиваем их вперёд, чтобы последняя
	// запись всегда соответствовала текущему статусу.
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			entries[i].Timestamp = entries[i-1].Timestamp
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Status.Rank() < entries[j].Status.Rank()
	})

	return entries
}

// impliedStatuses статусы после pending, которые подразумевает текущий статус
func impliedStatuses(appt *domain.Appointment) []domain.ClientStatus {
	switch appt.ClientVisibleStatus() {
	case domain.ClientConfirmed:
		return []domain.ClientStatus{domain.ClientConfirmed}
	case domain.ClientPaid:
		return []domain.ClientStatus{domain.ClientConfirmed, domain.ClientPaid}
	case domain.ClientCompleted:
		if appt.HasPayment() {
			return []domain.ClientStatus{domain.ClientConfirmed, domain.ClientPaid, domain.ClientCompleted}
		}
		return []domain.ClientStatus{domain.ClientConfirmed, domain.ClientCompleted}
	case domain.ClientCancelled:
		return []domain.ClientStatus{domain.ClientCancelled}
	case domain.ClientRejected:
		return []domain.ClientStatus{domain.ClientRejected}
	}
	return nil
}

func timestampFor(status domain.ClientStatus, appt *domain.Appointment, payment *domain.Payment) time.Time {
	if status == domain.ClientPaid && payment != nil && payment.PaidAt != nil {
		return *payment.PaidAt
	}
	return appt.UpdatedAt
}

func newEntry(status domain.ClientStatus, ts time.Time) Entry {
	tpl := templates[status]
	return Entry{
		Status:      status,
		Timestamp:   ts,
		Title:       tpl.title,
		Description: tpl.description,
	}
}

// Last возвращает последнее событие истории
func Last(entries []Entry) (Entry, bool) {
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}
