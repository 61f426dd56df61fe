// Package store reads and writes team-tasks project records.
package store

import (
	"errors"

	"github.com/msageha/taskcoord/internal/model"
)

var (
	// ErrNotFound means no record exists for the project id.
	ErrNotFound = errors.New("project not found")
	// ErrMalformed means the record exists but cannot be decoded.
	ErrMalformed = errors.New("malformed project record")
)

// Store is keyed by project id. Get never returns a partial project: it either
// succeeds or wraps ErrNotFound / ErrMalformed.
type Store interface {
	List() ([]string, error)
	Get(id string) (*model.Project, error)
	Put(p *model.Project) error
	AppendLog(id, stage string, entry model.LogEntry) error
}

// IsSkippable reports whether err means "skip this project" rather than an I/O fault.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed)
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		if r == '/' || r == '\\' || r == 0 {
			return false
		}
	}
	return true
}
