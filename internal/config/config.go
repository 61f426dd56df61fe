// Package config loads taskcoord.yaml, environment overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/msageha/taskcoord/internal/model"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "taskcoord.yaml"

// EnvPrefix namespaces environment overrides, e.g. TASKCOORD_PUSH_COOLDOWN=20m.
const EnvPrefix = "TASKCOORD"

// LegacyProjectsDirEnv is the variable the team-tasks tooling already exports.
const LegacyProjectsDirEnv = "TEAM_TASKS_DIR"

// Load reads path (DefaultFile when empty) over the built-in defaults and
// returns a validated config with home-relative paths expanded. Only an
// explicitly named file must exist.
func Load(path string) (model.Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("paths.projects_dir", EnvPrefix+"_PATHS_PROJECTS_DIR", LegacyProjectsDirEnv)

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return model.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return model.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeAgentTables(&cfg.Agents)

	var err error
	if cfg.Paths.ProjectsDir, err = ExpandHome(cfg.Paths.ProjectsDir); err != nil {
		return model.Config{}, err
	}
	if cfg.Paths.LogsDir, err = ExpandHome(cfg.Paths.LogsDir); err != nil {
		return model.Config{}, err
	}
	if cfg.Logging.File, err = ExpandHome(cfg.Logging.File); err != nil {
		return model.Config{}, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return model.Config{}, errs
	}
	return cfg, nil
}

// SetDefaults registers every key of model.DefaultConfig on v.
func SetDefaults(v *viper.Viper) {
	d := model.DefaultConfig()

	v.SetDefault("paths.projects_dir", d.Paths.ProjectsDir)
	v.SetDefault("paths.logs_dir", d.Paths.LogsDir)

	v.SetDefault("agents.default_timeout", d.Agents.DefaultTimeout)
	v.SetDefault("agents.aliases", d.Agents.Aliases)
	v.SetDefault("agents.timeouts", d.Agents.Timeouts)
	v.SetDefault("agents.routes", d.Agents.Routes)

	v.SetDefault("push.max_attempts", d.Push.MaxAttempts)
	v.SetDefault("push.cooldown", d.Push.Cooldown)
	v.SetDefault("push.delivery_timeout", d.Push.DeliveryTimeout)

	v.SetDefault("notifier.type", d.Notifier.Type)
	v.SetDefault("notifier.command", d.Notifier.Command)

	v.SetDefault("ledger.backend", d.Ledger.Backend)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)

	v.SetDefault("watch.interval", d.Watch.Interval)
	v.SetDefault("watch.push", d.Watch.Push)
}

// mergeAgentTables lays the configured alias, timeout and route entries over
// the built-in tables. Viper hands back only the file's map when a file sets
// any key of it.
func mergeAgentTables(a *model.AgentsConfig) {
	d := model.DefaultConfig().Agents
	a.Aliases = mergeTable(d.Aliases, a.Aliases)
	a.Timeouts = mergeTable(d.Timeouts, a.Timeouts)
	a.Routes = mergeTable(d.Routes, a.Routes)
}

func mergeTable[V any](defaults, configured map[string]V) map[string]V {
	out := maps.Clone(defaults)
	for k, v := range configured {
		out[strings.ToLower(k)] = v
	}
	return out
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// LockPath is where the coordinator instance lock lives.
func LockPath(cfg model.Config) string {
	return filepath.Join(cfg.Paths.LogsDir, "taskcoord.lock")
}
