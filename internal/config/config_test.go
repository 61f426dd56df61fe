package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/taskcoord/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskcoord.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  projects_dir: /srv/team-tasks
  logs_dir: /srv/logs
agents:
  timeouts:
    code-agent: 30m
  routes:
    code-agent: "agent:code:main"
push:
  max_attempts: 5
  cooldown: 20m
notifier:
  type: command
  command: ["openclaw", "sessions", "send", "{target}"]
ledger:
  backend: sqlite
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/team-tasks", cfg.Paths.ProjectsDir)
	assert.Equal(t, "/srv/logs", cfg.Paths.LogsDir)
	assert.Equal(t, 30*time.Minute, cfg.Agents.Timeouts["code-agent"])
	assert.Equal(t, "agent:code:main", cfg.Agents.Routes["code-agent"])
	assert.Equal(t, 5, cfg.Push.MaxAttempts)
	assert.Equal(t, 20*time.Minute, cfg.Push.Cooldown)
	assert.Equal(t, 30*time.Second, cfg.Push.DeliveryTimeout, "unset keys keep defaults")
	assert.Equal(t, model.NotifierCommand, cfg.Notifier.Type)
	assert.Equal(t, []string{"openclaw", "sessions", "send", "{target}"}, cfg.Notifier.Command)
	assert.Equal(t, model.LedgerSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "code-agent", cfg.Agents.Aliases["scsun-code-agent"])
	assert.Equal(t, 5*time.Minute, cfg.Agents.Timeouts["monitor-agent"], "unset agents keep their defaults")
	assert.Equal(t, "agent:scsun-qa-agent:main", cfg.Agents.Routes["test-agent"])
}

func TestLoad_AgentTablesMergeOverDefaults(t *testing.T) {
	path := writeConfig(t, `
paths:
  projects_dir: /srv/team-tasks
  logs_dir: /srv/logs
agents:
  aliases:
    Builder: code-agent
  timeouts:
    code-agent: 30m
  routes:
    code-agent: "agent:code:main"
    docs-agent: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	d := model.DefaultConfig().Agents
	assert.Equal(t, 30*time.Minute, cfg.Agents.Timeouts["code-agent"])
	assert.Equal(t, 5*time.Minute, cfg.Agents.Timeouts["monitor-agent"])
	assert.Equal(t, 10*time.Minute, cfg.Agents.Timeouts["qa-agent"])
	assert.Len(t, cfg.Agents.Timeouts, len(d.Timeouts))

	assert.Equal(t, "agent:code:main", cfg.Agents.Routes["code-agent"])
	assert.Equal(t, d.Routes["monitor-agent"], cfg.Agents.Routes["monitor-agent"])
	assert.Equal(t, "", cfg.Agents.Routes["docs-agent"])

	assert.Equal(t, "code-agent", cfg.Agents.Aliases["builder"])
	assert.Equal(t, "qa-agent", cfg.Agents.Aliases["scsun-qa-agent"])

	// The built-in tables are not modified by a load.
	assert.Equal(t, 15*time.Minute, model.DefaultConfig().Agents.Timeouts["code-agent"])
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	d := model.DefaultConfig()
	assert.Equal(t, d.Push, cfg.Push)
	assert.Equal(t, d.Agents.Timeouts, cfg.Agents.Timeouts)
	assert.Equal(t, d.Agents.Routes, cfg.Agents.Routes)
	assert.True(t, filepath.IsAbs(cfg.Paths.ProjectsDir), "~ is expanded: %s", cfg.Paths.ProjectsDir)
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TASKCOORD_PUSH_MAX_ATTEMPTS", "7")
	t.Setenv("TASKCOORD_PUSH_COOLDOWN", "45m")
	t.Setenv("TEAM_TASKS_DIR", "/data/team-tasks")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Push.MaxAttempts)
	assert.Equal(t, 45*time.Minute, cfg.Push.Cooldown)
	assert.Equal(t, "/data/team-tasks", cfg.Paths.ProjectsDir)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, `
push:
  max_attempts: 0
notifier:
  type: pager
`)
	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Config)
		field  string
	}{
		{"empty projects dir", func(c *model.Config) { c.Paths.ProjectsDir = "" }, "paths.projects_dir"},
		{"empty logs dir", func(c *model.Config) { c.Paths.LogsDir = " " }, "paths.logs_dir"},
		{"logs inside projects", func(c *model.Config) { c.Paths.LogsDir = c.Paths.ProjectsDir + "/" }, "paths.logs_dir"},
		{"zero default timeout", func(c *model.Config) { c.Agents.DefaultTimeout = 0 }, "agents.default_timeout"},
		{"negative agent timeout", func(c *model.Config) { c.Agents.Timeouts["code-agent"] = -time.Minute }, "agents.timeouts.code-agent"},
		{"max attempts zero", func(c *model.Config) { c.Push.MaxAttempts = 0 }, "push.max_attempts"},
		{"negative cooldown", func(c *model.Config) { c.Push.Cooldown = -time.Second }, "push.cooldown"},
		{"zero delivery timeout", func(c *model.Config) { c.Push.DeliveryTimeout = 0 }, "push.delivery_timeout"},
		{"unknown notifier", func(c *model.Config) { c.Notifier.Type = "sms" }, "notifier.type"},
		{"command without argv", func(c *model.Config) { c.Notifier.Type = model.NotifierCommand }, "notifier.command"},
		{"unknown ledger", func(c *model.Config) { c.Ledger.Backend = "redis" }, "ledger.backend"},
		{"unknown log level", func(c *model.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown log format", func(c *model.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero watch interval", func(c *model.Config) { c.Watch.Interval = 0 }, "watch.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			tt.mutate(&cfg)
			errs := Validate(cfg)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.Nil(t, Validate(model.DefaultConfig()))
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: "x", Message: "worse"},
	}
	assert.Equal(t, "a: bad (got: 1)", errs[:1].Error())
	assert.Contains(t, errs.Error(), "2 validation errors:")
	assert.Contains(t, errs.Error(), "2. b: worse (got: x)")
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs"), got)

	got, err = ExpandHome("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandHome("/abs/~x")
	require.NoError(t, err)
	assert.Equal(t, "/abs/~x", got)
}

func TestLockPath(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Paths.LogsDir = "/var/log/taskcoord"
	assert.Equal(t, "/var/log/taskcoord/taskcoord.lock", LockPath(cfg))
}
