// Package model defines the data structures for taskcoord's configuration, project files and push ledger.
package model

import "time"

type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Push     PushConfig     `mapstructure:"push"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

type PathsConfig struct {
	ProjectsDir string `mapstructure:"projects_dir"`
	LogsDir     string `mapstructure:"logs_dir"`
}

type AgentsConfig struct {
	DefaultTimeout time.Duration            `mapstructure:"default_timeout"`
	Aliases        map[string]string        `mapstructure:"aliases"`
	Timeouts       map[string]time.Duration `mapstructure:"timeouts"`
	Routes         map[string]string        `mapstructure:"routes"`
}

type PushConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	Cooldown        time.Duration `mapstructure:"cooldown"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
}

type NotifierConfig struct {
	Type    string   `mapstructure:"type"` // "log", "desktop", "command"
	Command []string `mapstructure:"command"`
}

type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "sqlite"
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
	File   string `mapstructure:"file"`
}

type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Push     bool          `mapstructure:"push"`
}

const (
	NotifierLog     = "log"
	NotifierDesktop = "desktop"
	NotifierCommand = "command"

	LedgerFile   = "file"
	LedgerSQLite = "sqlite"
)

// DefaultConfig mirrors the team-tasks deployment the coordinator was written for.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ProjectsDir: "~/.openclaw/workspace/data/team-tasks",
			LogsDir:     "~/.openclaw/workspace/logs",
		},
		Agents: AgentsConfig{
			DefaultTimeout: 10 * time.Minute,
			Aliases: map[string]string{
				"scsun-code-agent":    "code-agent",
				"scsun-qa-agent":      "qa-agent",
				"scsun-test-agent":    "test-agent",
				"scsun-docs-agent":    "docs-agent",
				"scsun-monitor-agent": "monitor-agent",
				"code":                "code-agent",
				"test":                "test-agent",
				"qa":                  "qa-agent",
				"docs":                "docs-agent",
				"monitor":             "monitor-agent",
			},
			Timeouts: map[string]time.Duration{
				"code-agent":    15 * time.Minute,
				"test-agent":    10 * time.Minute,
				"qa-agent":      10 * time.Minute,
				"docs-agent":    10 * time.Minute,
				"monitor-bot":   5 * time.Minute,
				"monitor-agent": 5 * time.Minute,
			},
			Routes: map[string]string{
				"code-agent":    "agent:scsun-code-agent:main",
				"test-agent":    "agent:scsun-qa-agent:main",
				"qa-agent":      "agent:scsun-qa-agent:main",
				"docs-agent":    "agent:scsun-docs-agent:main",
				"monitor-bot":   "agent:scsun-monitor-agent:main",
				"monitor-agent": "agent:scsun-monitor-agent:main",
			},
		},
		Push: PushConfig{
			MaxAttempts:     3,
			Cooldown:        15 * time.Minute,
			DeliveryTimeout: 30 * time.Second,
		},
		Notifier: NotifierConfig{Type: NotifierLog},
		Ledger:   LedgerConfig{Backend: LedgerFile},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Watch:    WatchConfig{Interval: time.Minute, Push: true},
	}
}
