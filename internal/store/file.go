package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/msageha/taskcoord/internal/fileio"
	"github.com/msageha/taskcoord/internal/lock"
	"github.com/msageha/taskcoord/internal/model"
)

// FileStore keeps one <id>.json file per project under dir.
type FileStore struct {
	dir string
	mu  *lock.MutexMap
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, mu: lock.NewMutexMap()}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// List returns project ids sorted. A missing directory yields ErrNotFound.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("projects dir %s: %w", s.dir, ErrNotFound)
		}
		return nil, fmt.Errorf("read projects dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Get(id string) (*model.Project, error) {
	if !validID(id) {
		return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return s.read(id)
}

func (s *FileStore) read(id string) (*model.Project, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read project %q: %w", id, err)
	}
	p, err := decode(id, data)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decode(id string, data []byte) (*model.Project, error) {
	p := model.NewProject(id)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("project %q: %w: %v", id, ErrMalformed, err)
	}
	p.ID = id
	return p, nil
}

func (s *FileStore) Put(p *model.Project) error {
	if p == nil || !validID(p.ID) {
		return fmt.Errorf("put project: invalid id")
	}
	return s.mu.With(p.ID, func() error {
		return s.write(p)
	})
}

func (s *FileStore) write(p *model.Project) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create projects dir: %w", err)
	}
	if err := fileio.AtomicWriteJSON(s.path(p.ID), p); err != nil {
		return fmt.Errorf("write project %q: %w", p.ID, err)
	}
	return nil
}

// AppendLog adds a log entry to one stage and rewrites the project file.
func (s *FileStore) AppendLog(id, stage string, entry model.LogEntry) error {
	if !validID(id) {
		return fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return s.mu.With(id, func() error {
		p, err := s.read(id)
		if err != nil {
			return err
		}
		st, ok := p.Stage(stage)
		if !ok {
			return fmt.Errorf("project %q stage %q: %w", id, stage, ErrNotFound)
		}
		st.Logs = append(st.Logs, entry)
		return s.write(p)
	})
}
