package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/msageha/taskcoord/internal/coordinator"
	"github.com/msageha/taskcoord/internal/lock"
)

const version = "1.0.0"

// Exit codes.
const (
	exitOK             = 0
	exitError          = 1
	exitNotFound       = 2
	exitRoutingFailure = 3
	exitLocked         = 4
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, coordinator.ErrProjectNotFound):
		return exitNotFound
	case errors.Is(err, coordinator.ErrRoutingFailure):
		return exitRoutingFailure
	case errors.Is(err, lock.ErrLocked):
		return exitLocked
	default:
		return exitError
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "taskcoord",
		Short: "Detect stalled team-tasks stages and push their agents",
		Long: `taskcoord scans team-tasks project files for stages that have been idle
longer than their agent's timeout. With --push it sends the agent a reminder,
throttled by a per-day attempt cap and a cooldown, and records every decision
in the push ledger.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          c.runRoot,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./taskcoord.yaml)")

	f := root.Flags()
	f.BoolVar(&c.checkAll, "check-all", false, "check every project")
	f.StringVar(&c.project, "project", "", "check a single project")
	f.BoolVar(&c.status, "status", false, "print the project and stage overview")
	f.BoolVar(&c.push, "push", false, "push stuck agents (with --check-all or --project)")
	f.BoolVar(&c.jsonOut, "json", false, "print --status as JSON")
	root.MarkFlagsMutuallyExclusive("check-all", "project", "status")
	root.MarkFlagsMutuallyExclusive("status", "push")

	root.AddCommand(c.initCmd(), c.watchCmd(), c.ledgerCmd())
	return root
}
