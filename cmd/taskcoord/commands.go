package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/msageha/taskcoord/internal/config"
	"github.com/msageha/taskcoord/internal/coordinator"
	"github.com/msageha/taskcoord/internal/daemon"
	"github.com/msageha/taskcoord/internal/ledger"
	"github.com/msageha/taskcoord/internal/lock"
	"github.com/msageha/taskcoord/internal/logging"
	"github.com/msageha/taskcoord/internal/model"
	"github.com/msageha/taskcoord/internal/notify"
	"github.com/msageha/taskcoord/internal/policy"
	"github.com/msageha/taskcoord/internal/roster"
	"github.com/msageha/taskcoord/internal/setup"
	"github.com/msageha/taskcoord/internal/staleness"
	"github.com/msageha/taskcoord/internal/status"
	"github.com/msageha/taskcoord/internal/store"
)

type cli struct {
	configPath string
	checkAll   bool
	project    string
	status     bool
	push       bool
	jsonOut    bool

	stdout io.Writer
	stderr io.Writer
}

// env is everything one command invocation needs, built from the config.
type env struct {
	cfg    model.Config
	logger *zap.Logger
	roster *roster.Roster
	ledger ledger.Ledger
	coord  *coordinator.Coordinator
}

func (e *env) Close() {
	if e.ledger != nil {
		if err := e.ledger.Close(); err != nil {
			e.logger.Warn("ledger_close_failed", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

// open loads the config and wires the coordinator. The ledger and notifier
// are only opened when withLedger is set, so --status never touches them.
func (c *cli) open(withLedger bool) (*env, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	r := roster.New(cfg.Agents)
	e := &env{cfg: cfg, logger: logger, roster: r}

	opts := coordinator.Options{
		Store:           store.NewFileStore(cfg.Paths.ProjectsDir),
		Evaluator:       staleness.New(r, time.Local),
		DeliveryTimeout: cfg.Push.DeliveryTimeout,
		Out:             c.stdout,
		Logger:          logger,
	}
	if withLedger {
		l, err := ledger.Open(cfg.Ledger, cfg.Paths.LogsDir, logger)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("open push ledger: %w", err)
		}
		e.ledger = l
		n, err := notify.New(cfg.Notifier, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
		opts.Ledger = l
		opts.Notifier = n
	}
	opts.Policy = policy.New(r, e.ledger, cfg.Push)
	e.coord = coordinator.New(opts)
	return e, nil
}

func (c *cli) runRoot(cmd *cobra.Command, _ []string) error {
	if !c.checkAll && c.project == "" && !c.status {
		return cmd.Help()
	}
	if c.push && !c.checkAll && c.project == "" {
		return fmt.Errorf("--push requires --check-all or --project")
	}
	if c.jsonOut && !c.status {
		return fmt.Errorf("--json requires --status")
	}

	e, err := c.open(!c.status)
	if err != nil {
		return err
	}
	defer e.Close()

	if c.status {
		ov, err := e.coord.Status()
		if err != nil {
			return fmt.Errorf("collect status: %w", err)
		}
		ov.ProjectsDir = e.cfg.Paths.ProjectsDir
		ov.LogsDir = e.cfg.Paths.LogsDir
		ov.Agents = e.roster.Agents()
		return status.Print(c.stdout, ov, c.jsonOut)
	}

	if c.push {
		fl := lock.NewFileLock(config.LockPath(e.cfg))
		if err := fl.TryLock(); err != nil {
			return fmt.Errorf("coordinator lock: %w", err)
		}
		defer func() {
			if err := fl.Unlock(); err != nil {
				e.logger.Warn("lock_release_failed", zap.Error(err))
			}
		}()
	}

	var rep coordinator.Report
	if c.checkAll {
		rep, err = e.coord.CheckAll(cmd.Context(), c.push)
	} else {
		rep, err = e.coord.CheckProject(cmd.Context(), c.project, c.push)
	}
	if err != nil {
		return err
	}
	if c.push && len(rep.Candidates) > 0 {
		fmt.Fprintf(c.stdout, "\nPushed: %d  Skipped: %d  Failed: %d\n",
			rep.Count(model.PushSuccess), rep.Count(model.PushSkipped), rep.Count(model.PushFailed))
	}
	return rep.Err()
}

func (c *cli) initCmd() *cobra.Command {
	var opts setup.Options
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default taskcoord.yaml and create the data directories",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path, err := setup.Run(dir, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ProjectsDir, "projects-dir", "", "team-tasks projects directory")
	cmd.Flags().StringVar(&opts.LogsDir, "logs-dir", "", "push ledger directory")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var interval time.Duration
	var push bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check projects on every change and on a timer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := c.open(true)
			if err != nil {
				return err
			}
			defer e.Close()

			opts := daemon.Options{
				ProjectsDir: e.cfg.Paths.ProjectsDir,
				Interval:    e.cfg.Watch.Interval,
				Push:        e.cfg.Watch.Push,
				Lock:        lock.NewFileLock(config.LockPath(e.cfg)),
				Logger:      e.logger,
			}
			if cmd.Flags().Changed("interval") {
				opts.Interval = interval
			}
			if cmd.Flags().Changed("push") {
				opts.Push = push
			}
			return daemon.New(e.coord, opts).Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between scheduled passes")
	cmd.Flags().BoolVar(&push, "push", true, "push stuck agents on each pass")
	return cmd
}

func (c *cli) ledgerCmd() *cobra.Command {
	var date string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print one day of the push ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now()
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
				day = d
			}

			e, err := c.open(true)
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := e.ledger.Entries(day)
			if err != nil {
				return fmt.Errorf("read push ledger: %w", err)
			}
			return printLedger(c.stdout, day, entries, jsonOut)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to print, YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print entries as JSON")
	return cmd
}

func printLedger(w io.Writer, day time.Time, entries []model.PushLogEntry, jsonOut bool) error {
	if jsonOut {
		if entries == nil {
			entries = []model.PushLogEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	fmt.Fprintf(w, "Push ledger %s: %d entries\n", model.DayKey(day), len(entries))
	for _, en := range entries {
		when := en.Timestamp
		if t := en.Time(); !t.IsZero() {
			when = t.Format("15:04:05") + " (" + humanize.Time(t) + ")"
		}
		fmt.Fprintf(w, "  %s  %s/%s  %s  %s  #%d", when, en.Project, en.Stage, en.Agent, en.Result, en.PushCount)
		if en.Error != "" {
			fmt.Fprintf(w, "  %s", en.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}
