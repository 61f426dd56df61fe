package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/msageha/taskcoord/internal/model"
)

// Open returns the backend selected by cfg, rooted at logsDir.
func Open(cfg model.LedgerConfig, logsDir string, logger *zap.Logger) (Ledger, error) {
	switch cfg.Backend {
	case "", model.LedgerFile:
		return NewFileLedger(logsDir, logger), nil
	case model.LedgerSQLite:
		return NewSQLite(logsDir, logger)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
