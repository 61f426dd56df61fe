package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/msageha/taskcoord/internal/model"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

func ValidLogFormats() []string {
	return []string{"console", "json"}
}

func ValidNotifierTypes() []string {
	return []string{model.NotifierLog, model.NotifierDesktop, model.NotifierCommand}
}

func ValidLedgerBackends() []string {
	return []string{model.LedgerFile, model.LedgerSQLite}
}

// Validate returns every problem found in cfg; nil means valid.
func Validate(cfg model.Config) ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if strings.TrimSpace(cfg.Paths.ProjectsDir) == "" {
		add("paths.projects_dir", cfg.Paths.ProjectsDir, "must not be empty")
	}
	if strings.TrimSpace(cfg.Paths.LogsDir) == "" {
		add("paths.logs_dir", cfg.Paths.LogsDir, "must not be empty")
	} else if filepath.Clean(cfg.Paths.LogsDir) == filepath.Clean(cfg.Paths.ProjectsDir) {
		add("paths.logs_dir", cfg.Paths.LogsDir, "must differ from paths.projects_dir")
	}

	if cfg.Agents.DefaultTimeout <= 0 {
		add("agents.default_timeout", cfg.Agents.DefaultTimeout, "must be positive")
	}
	for agent, d := range cfg.Agents.Timeouts {
		if d <= 0 {
			add("agents.timeouts."+agent, d, "must be positive")
		}
	}

	if cfg.Push.MaxAttempts < 1 {
		add("push.max_attempts", cfg.Push.MaxAttempts, "must be at least 1")
	}
	if cfg.Push.Cooldown < 0 {
		add("push.cooldown", cfg.Push.Cooldown, "must not be negative")
	}
	if cfg.Push.DeliveryTimeout <= 0 {
		add("push.delivery_timeout", cfg.Push.DeliveryTimeout, "must be positive")
	}

	if !slices.Contains(ValidNotifierTypes(), cfg.Notifier.Type) {
		add("notifier.type", cfg.Notifier.Type, "must be one of "+strings.Join(ValidNotifierTypes(), ", "))
	}
	if cfg.Notifier.Type == model.NotifierCommand && len(cfg.Notifier.Command) == 0 {
		add("notifier.command", cfg.Notifier.Command, "required when notifier.type is command")
	}

	if !slices.Contains(ValidLedgerBackends(), cfg.Ledger.Backend) {
		add("ledger.backend", cfg.Ledger.Backend, "must be one of "+strings.Join(ValidLedgerBackends(), ", "))
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(cfg.Logging.Level)) {
		add("logging.level", cfg.Logging.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), cfg.Logging.Format) {
		add("logging.format", cfg.Logging.Format, "must be one of "+strings.Join(ValidLogFormats(), ", "))
	}

	if cfg.Watch.Interval <= 0 {
		add("watch.interval", cfg.Watch.Interval, "must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
