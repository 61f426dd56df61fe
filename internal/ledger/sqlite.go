package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/msageha/taskcoord/internal/model"
)

// DBFile is the SQLite ledger's file name inside the logs dir.
const DBFile = "coordinator-ledger.db"

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLite stores entries in a single table with a day column. Each Append is one
// INSERT, so concurrent writers never overwrite each other's entries.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLite(dir string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ledger: create logs dir: %w", err)
	}
	path := filepath.Join(dir, DBFile)
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: pragma %q: %w", p, err)
		}
	}
	db.SetMaxOpenConns(1)

	l := &SQLite{db: db, logger: logger.Named("ledger")}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migration: %w", err)
	}
	return l, nil
}

func (l *SQLite) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS push_log (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    NOT NULL UNIQUE,
			day        TEXT    NOT NULL,
			timestamp  TEXT    NOT NULL,
			project    TEXT    NOT NULL,
			stage      TEXT    NOT NULL,
			agent      TEXT    NOT NULL DEFAULT '',
			action     TEXT    NOT NULL,
			result     TEXT    NOT NULL,
			reason     TEXT    NOT NULL DEFAULT '',
			error      TEXT    NOT NULL DEFAULT '',
			push_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_push_log_day_target ON push_log(day, project, stage);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLite) Append(entry model.PushLogEntry) error {
	day, err := prepare(&entry)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(`
		INSERT INTO push_log (id, day, timestamp, project, stage, agent, action, result, reason, error, push_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, day, entry.Timestamp, entry.Project, entry.Stage, entry.Agent,
		entry.Action, string(entry.Result), string(entry.Reason), entry.Error, entry.PushCount)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

func (l *SQLite) Stats(project, stage string, day time.Time) (Stats, error) {
	var (
		s    Stats
		last sql.NullString
	)
	row := l.db.QueryRow(`
		SELECT COUNT(*),
		       (SELECT timestamp FROM push_log
		         WHERE day = ?1 AND project = ?2 AND stage = ?3 AND action = ?4 AND result = ?5
		         ORDER BY seq DESC LIMIT 1)
		  FROM push_log
		 WHERE day = ?1 AND project = ?2 AND stage = ?3 AND action = ?4 AND result = ?5`,
		model.DayKey(day), project, stage, model.ActionAutoPush, string(model.PushSuccess))
	if err := row.Scan(&s.Count, &last); err != nil {
		return Stats{}, fmt.Errorf("ledger: stats: %w", err)
	}
	if last.Valid {
		t, err := model.ParseTimestamp(last.String, nil)
		if err != nil {
			l.logger.Warn("ledger_bad_timestamp", zap.String("timestamp", last.String), zap.Error(err))
		} else {
			s.LastSuccess = t
		}
	}
	return s, nil
}

func (l *SQLite) Entries(day time.Time) ([]model.PushLogEntry, error) {
	rows, err := l.db.Query(`
		SELECT id, timestamp, project, stage, agent, action, result, reason, error, push_count
		  FROM push_log WHERE day = ? ORDER BY seq`, model.DayKey(day))
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer rows.Close()

	var out []model.PushLogEntry
	for rows.Next() {
		var (
			e      model.PushLogEntry
			result string
			reason string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Project, &e.Stage, &e.Agent,
			&e.Action, &result, &reason, &e.Error, &e.PushCount); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		e.Result = model.PushResult(result)
		e.Reason = model.SkipReason(reason)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate entries: %w", err)
	}
	return out, nil
}

func (l *SQLite) Close() error {
	return l.db.Close()
}
