package ledger

import (
	"sync"
	"time"

	"github.com/msageha/taskcoord/internal/model"
)

// Memory keeps entries in process, partitioned by day like FileLedger.
type Memory struct {
	mu   sync.Mutex
	days map[string][]model.PushLogEntry

	// FailAppend, when set, is returned by Append.
	FailAppend error
}

func NewMemory() *Memory {
	return &Memory{days: make(map[string][]model.PushLogEntry)}
}

func (m *Memory) Append(entry model.PushLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAppend != nil {
		return m.FailAppend
	}
	key, err := prepare(&entry)
	if err != nil {
		return err
	}
	m.days[key] = append(m.days[key], entry)
	return nil
}

func (m *Memory) Stats(project, stage string, day time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return tally(m.days[model.DayKey(day)], project, stage), nil
}

func (m *Memory) Entries(day time.Time) ([]model.PushLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.days[model.DayKey(day)]
	return append([]model.PushLogEntry(nil), entries...), nil
}

func (m *Memory) Close() error {
	return nil
}
