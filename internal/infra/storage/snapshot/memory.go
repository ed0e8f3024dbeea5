package snapshot

import (
	"context"
	"sync"
)

// Memory хранилище снимков в памяти процесса (без БД)
type Memory struct {
	mu    sync.RWMutex
	items map[string]map[string]*Snapshot
}

// NewMemory создает пустое хранилище снимков в памяти
func NewMemory() *Memory {
	return &Memory{items: make(map[string]map[string]*Snapshot)}
}

// Get получает снимок записи в рамках сессии
func (m *Memory) Get(_ context.Context, sessionID, appointmentID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.items[sessionID][appointmentID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return cloneSnapshot(snap), nil
}

// Save сохраняет копию снимка
func (m *Memory) Save(_ context.Context, sessionID string, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.items[sessionID]
	if !ok {
		session = make(map[string]*Snapshot)
		m.items[sessionID] = session
	}
	session[snap.Appointment.ID] = cloneSnapshot(snap)
	return nil
}

// Delete удаляет снимок записи
func (m *Memory) Delete(_ context.Context, sessionID, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items[sessionID], appointmentID)
	if len(m.items[sessionID]) == 0 {
		delete(m.items, sessionID)
	}
	return nil
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	out := &Snapshot{Mode: s.Mode, Synthetic: s.Synthetic}
	if s.Appointment != nil {
		out.Appointment = s.Appointment.Clone()
	}
	if s.PaidAt != nil {
		t := *s.PaidAt
		out.PaidAt = &t
	}
	return out
}
