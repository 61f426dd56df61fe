package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/msageha/taskcoord/internal/fileio"
	"github.com/msageha/taskcoord/internal/lock"
	"github.com/msageha/taskcoord/internal/model"
)

// FileLedger writes one JSON array per day to <dir>/coordinator-YYYY-MM-DD.json.
// Append is read-modify-write of the whole day file. Appends within one
// FileLedger are serialized; separate instances (or processes) are not, so a
// deployment runs a single coordinator holding the coordinator lock.
type FileLedger struct {
	dir    string
	mu     *lock.MutexMap
	logger *zap.Logger
}

func NewFileLedger(dir string, logger *zap.Logger) *FileLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileLedger{
		dir:    dir,
		mu:     lock.NewMutexMap(),
		logger: logger.Named("ledger"),
	}
}

func (l *FileLedger) pathForKey(key string) string {
	return filepath.Join(l.dir, "coordinator-"+key+".json")
}

func (l *FileLedger) Append(entry model.PushLogEntry) error {
	key, err := prepare(&entry)
	if err != nil {
		return err
	}
	return l.mu.With(key, func() error {
		entries, err := l.readDay(key)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return l.writeDay(key, entries)
	})
}

func (l *FileLedger) Stats(project, stage string, day time.Time) (Stats, error) {
	key := model.DayKey(day)
	var s Stats
	err := l.mu.With(key, func() error {
		entries, err := l.readDay(key)
		if err != nil {
			return err
		}
		s = tally(entries, project, stage)
		return nil
	})
	return s, err
}

func (l *FileLedger) Entries(day time.Time) ([]model.PushLogEntry, error) {
	key := model.DayKey(day)
	var out []model.PushLogEntry
	err := l.mu.With(key, func() error {
		entries, err := l.readDay(key)
		out = entries
		return err
	})
	return out, err
}

func (l *FileLedger) Close() error {
	return nil
}

// readDay returns the day's entries; a missing file is an empty day.
func (l *FileLedger) readDay(key string) ([]model.PushLogEntry, error) {
	path := l.pathForKey(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger %s: %w", filepath.Base(path), err)
	}
	var entries []model.PushLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.quarantine(path, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	return entries, nil
}

func (l *FileLedger) quarantine(path string, cause error) {
	moved, restored, err := fileio.RecoverCorruptedFile(l.dir, path, validateDay)
	if err != nil {
		l.logger.Error("ledger_quarantine_failed", zap.String("file", path), zap.Error(err))
		return
	}
	l.logger.Warn("ledger_quarantined",
		zap.String("file", path),
		zap.String("moved_to", moved),
		zap.Bool("restored_from_backup", restored),
		zap.NamedError("cause", cause))
}

func (l *FileLedger) writeDay(key string, entries []model.PushLogEntry) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	if entries == nil {
		entries = []model.PushLogEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	data = append(data, '\n')
	if err := fileio.AtomicWriteRaw(l.pathForKey(key), data, validateDay); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func validateDay(data []byte) error {
	var entries []model.PushLogEntry
	return json.Unmarshal(data, &entries)
}
