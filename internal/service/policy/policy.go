// Package policy определяет, какие переходы статуса доступны роли участника.
package policy

import "github.com/m04kA/SMC-LifecycleService/internal/domain"

// SideEffect побочное действие, которое UI выполняет после перехода
type SideEffect string

const (
	SideEffectNone            SideEffect = "none"
	SideEffectInitiatePayment SideEffect = "initiatePayment"
)

// Transition доступный переход
type Transition struct {
	Target     domain.ClientStatus
	Label      string
	SideEffect SideEffect
}

var (
	confirmWithPayment = Transition{Target: domain.ClientConfirmed, Label: "Подтвердить запись", SideEffect: SideEffectInitiatePayment}
	cancel             = Transition{Target: domain.ClientCancelled, Label: "Отменить запись", SideEffect: SideEffectNone}
	complete           = Transition{Target: domain.ClientCompleted, Label: "Отметить выполненной", SideEffect: SideEffectNone}
)

// transitionsTable таблица переходов в клиентском словаре с разбивкой по ролям.
// completed предлагается только специалисту: клиент не может сам подтвердить оказание услуги.
var transitionsTable = map[domain.ClientStatus]map[domain.Role][]Transition{
	domain.ClientPending: {
		domain.RoleClient:       {confirmWithPayment, cancel},
		domain.RoleProfessional: {confirmWithPayment, cancel},
	},
	domain.ClientConfirmed: {
		domain.RoleClient: {cancel},
		// Оплата в части сценариев необязательна, поэтому специалист может завершить запись без paid
		domain.RoleProfessional: {complete, cancel},
	},
	domain.ClientPaid: {
		domain.RoleProfessional: {complete},
	},
	// completed, cancelled, rejected терминальные
}

// AvailableTransitions возвращает упорядоченный список переходов для пары (статус, роль).
// Для неизвестных комбинаций возвращается пустой список, а не ошибка.
func AvailableTransitions(current domain.ClientStatus, role domain.Role) []Transition {
	byRole, ok := transitionsTable[current]
	if !ok {
		return []Transition{}
	}
	transitions := byRole[role]
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Allows проверяет, входит ли target в список доступных переходов
func Allows(current domain.ClientStatus, role domain.Role, target domain.ClientStatus) (Transition, bool) {
	for _, tr := range AvailableTransitions(current, role) {
		if tr.Target == target {
			return tr, true
		}
	}
	return Transition{}, false
}
