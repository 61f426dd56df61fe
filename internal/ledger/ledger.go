// Package ledger is the day-partitioned audit log of push decisions.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/msageha/taskcoord/internal/model"
)

// ErrCorrupt means a day's ledger could not be decoded. The bad file has been
// quarantined by the time the error is returned.
var ErrCorrupt = errors.New("push ledger corrupt")

// Stats summarizes successful auto-pushes for one (project, stage) on one day.
type Stats struct {
	Count       int
	LastSuccess time.Time
}

func (s Stats) HasSuccess() bool {
	return !s.LastSuccess.IsZero()
}

// Ledger is append-only. Every query is scoped to a single calendar day; entries
// from other days are never consulted.
type Ledger interface {
	Append(entry model.PushLogEntry) error
	Stats(project, stage string, day time.Time) (Stats, error)
	Entries(day time.Time) ([]model.PushLogEntry, error)
	Close() error
}

// prepare fills in the entry id and returns the day key it belongs to. A
// caller-supplied id must be well formed.
func prepare(entry *model.PushLogEntry) (string, error) {
	t, err := model.ParseTimestamp(entry.Timestamp, nil)
	if err != nil {
		return "", fmt.Errorf("ledger entry timestamp: %w", err)
	}
	switch {
	case entry.ID != "" && !model.ValidateID(entry.ID):
		return "", fmt.Errorf("ledger entry id %q is malformed", entry.ID)
	case entry.ID == "":
		id, err := model.GenerateID(model.IDTypePush)
		if err != nil {
			return "", err
		}
		entry.ID = id
	}
	if entry.Action == "" {
		entry.Action = model.ActionAutoPush
	}
	return model.DayKey(t), nil
}

// tally computes Stats over one day's entries in append order.
func tally(entries []model.PushLogEntry, project, stage string) Stats {
	var s Stats
	for _, e := range entries {
		if e.Project != project || e.Stage != stage || !e.IsSuccessfulPush() {
			continue
		}
		s.Count++
		if t := e.Time(); !t.IsZero() {
			s.LastSuccess = t
		}
	}
	return s
}
