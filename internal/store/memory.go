package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/msageha/taskcoord/internal/model"
)

// Memory is an in-process Store. Records are stored encoded so callers never
// share pointers with it.
type Memory struct {
	mu      sync.Mutex
	records map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

// PutRaw stores raw bytes as a project record, malformed or not.
func (m *Memory) PutRaw(id string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = append([]byte(nil), data...)
}

func (m *Memory) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Get(id string) (*model.Project, error) {
	m.mu.Lock()
	data, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return decode(id, data)
}

func (m *Memory) Put(p *model.Project) error {
	if p == nil || !validID(p.ID) {
		return fmt.Errorf("put project: invalid id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %q: %w", p.ID, err)
	}
	m.PutRaw(p.ID, data)
	return nil
}

func (m *Memory) AppendLog(id, stage string, entry model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.records[id]
	if !ok {
		return fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	p, err := decode(id, data)
	if err != nil {
		return err
	}
	st, ok := p.Stage(stage)
	if !ok {
		return fmt.Errorf("project %q stage %q: %w", id, stage, ErrNotFound)
	}
	st.Logs = append(st.Logs, entry)
	updated, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode project %q: %w", id, err)
	}
	m.records[id] = updated
	return nil
}
