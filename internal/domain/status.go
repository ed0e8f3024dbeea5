package domain

// BackendStatus статус записи в словаре сервиса расписаний (источник истины)
type BackendStatus string

const (
	BackendRequested   BackendStatus = "REQUESTED"
	BackendConfirmed   BackendStatus = "CONFIRMED"
	BackendCompleted   BackendStatus = "COMPLETED"
	BackendCancelled   BackendStatus = "CANCELLED"
	BackendRescheduled BackendStatus = "RESCHEDULED"
)

// ClientStatus статус записи в клиентском словаре (для UI)
type ClientStatus string

const (
	ClientPending   ClientStatus = "pending"
	ClientConfirmed ClientStatus = "confirmed"
	ClientPaid      ClientStatus = "paid"
	ClientCompleted ClientStatus = "completed"
	ClientCancelled ClientStatus = "cancelled"
	ClientRejected  ClientStatus = "rejected"

	// ClientStatusUnknown нейтральный бейдж для нераспознанного статуса.
	// Никогда не получается из корректного BackendStatus.
	ClientStatusUnknown ClientStatus = "unknown"
)

// BackendStatuses все значения словаря сервиса расписаний
var BackendStatuses = []BackendStatus{
	BackendRequested,
	BackendConfirmed,
	BackendCompleted,
	BackendCancelled,
	BackendRescheduled,
}

// ClientStatuses все значения клиентского словаря (без unknown)
var ClientStatuses = []ClientStatus{
	ClientPending,
	ClientConfirmed,
	ClientPaid,
	ClientCompleted,
	ClientCancelled,
	ClientRejected,
}

// IsValid returns true if the status belongs to the backend vocabulary
func (s BackendStatus) IsValid() bool {
	switch s {
	case BackendRequested, BackendConfirmed, BackendCompleted, BackendCancelled, BackendRescheduled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transition is permitted
func (s BackendStatus) IsTerminal() bool {
	return s == BackendCompleted || s == BackendCancelled
}

// IsValid returns true if the status belongs to the client vocabulary
func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientPending, ClientConfirmed, ClientPaid, ClientCompleted, ClientCancelled, ClientRejected:
		return true
	}
	return false
}

// IsTerminal returns true for the client statuses that end the lifecycle
func (s ClientStatus) IsTerminal() bool {
	return s == ClientCompleted || s == ClientCancelled || s == ClientRejected
}

// Rank позиция статуса в полном порядке pending < confirmed < paid < completed.
// Ветка отмены (cancelled, rejected) идёт после основной цепочки.
func (s ClientStatus) Rank() int {
	switch s {
	case ClientPending:
		return 0
	case ClientConfirmed:
		return 1
	case ClientPaid:
		return 2
	case ClientCompleted:
		return 3
	case ClientCancelled:
		return 4
	case ClientRejected:
		return 5
	}
	return -1
}

// Role роль участника, запрашивающего переход
type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
)

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleProfessional
}
