// Package coordinator runs check passes: load projects, find stuck stages,
// apply the push policy, deliver and record every decision in the ledger.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/msageha/taskcoord/internal/ledger"
	"github.com/msageha/taskcoord/internal/model"
	"github.com/msageha/taskcoord/internal/notify"
	"github.com/msageha/taskcoord/internal/policy"
	"github.com/msageha/taskcoord/internal/staleness"
	"github.com/msageha/taskcoord/internal/status"
	"github.com/msageha/taskcoord/internal/store"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrRoutingFailure  = errors.New("agent has no delivery route")
)

// Options wires a Coordinator. Out receives human-readable progress; Now
// defaults to time.Now.
type Options struct {
	Store           store.Store
	Evaluator       *staleness.Evaluator
	Policy          *policy.Policy
	Ledger          ledger.Ledger
	Notifier        notify.Notifier
	DeliveryTimeout time.Duration
	Out             io.Writer
	Logger          *zap.Logger
	Now             func() time.Time
}

type Coordinator struct {
	store           store.Store
	evaluator       *staleness.Evaluator
	policy          *policy.Policy
	ledger          ledger.Ledger
	notifier        notify.Notifier
	deliveryTimeout time.Duration
	out             io.Writer
	logger          *zap.Logger
	now             func() time.Time
}

func New(o Options) *Coordinator {
	c := &Coordinator{
		store:           o.Store,
		evaluator:       o.Evaluator,
		policy:          o.Policy,
		ledger:          o.Ledger,
		notifier:        o.Notifier,
		deliveryTimeout: o.DeliveryTimeout,
		out:             o.Out,
		logger:          o.Logger,
		now:             o.Now,
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("coordinator")
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Outcome is one push decision and what was recorded for it.
type Outcome struct {
	Candidate staleness.Candidate
	Decision  policy.Decision
	Entry     model.PushLogEntry
	Ack       notify.Ack
}

// ProjectError is a failure confined to one project.
type ProjectError struct {
	ProjectID string
	Err       error
}

func (e ProjectError) Error() string {
	return fmt.Sprintf("project %s: %v", e.ProjectID, e.Err)
}

func (e ProjectError) Unwrap() error {
	return e.Err
}

// Report summarizes one pass.
type Report struct {
	Checked         int
	Candidates      []staleness.Candidate
	Outcomes        []Outcome
	Errors          []ProjectError
	RoutingFailures int
}

// Err is ErrRoutingFailure when any candidate had no delivery route.
func (r Report) Err() error {
	if r.RoutingFailures > 0 {
		return fmt.Errorf("%w: %d candidate(s)", ErrRoutingFailure, r.RoutingFailures)
	}
	return nil
}

func (r Report) Count(result model.PushResult) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Entry.Result == result {
			n++
		}
	}
	return n
}

// CheckAll evaluates every project. Per-project failures end up in the report;
// the returned error is only for failures to enumerate projects.
func (c *Coordinator) CheckAll(ctx context.Context, push bool) (Report, error) {
	var rep Report
	ids, err := c.store.List()
	if err != nil {
		fmt.Fprintf(c.out, "❌ Projects directory unavailable: %v\n", err)
		return rep, fmt.Errorf("list projects: %w", err)
	}

	fmt.Fprintln(c.out, "🔍 Checking all projects...")
	now := c.now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		fmt.Fprintf(c.out, "\n🔍 Checking project: %s\n", id)
		cand, ok, err := c.evaluate(id, now)
		rep.Checked++
		if err != nil {
			fmt.Fprintf(c.out, "  ❌ Check failed: %v\n", err)
			rep.Errors = append(rep.Errors, ProjectError{ProjectID: id, Err: err})
			continue
		}
		if !ok {
			fmt.Fprintln(c.out, "  ✅ Healthy")
			continue
		}
		fmt.Fprintf(c.out, "  ⚠️  Stuck stage: %s\n", cand.Stage)
		fmt.Fprintf(c.out, "     Idle for: %.1f minutes\n", cand.StuckMinutes())
		fmt.Fprintf(c.out, "     Timeout: %g minutes\n", cand.Timeout.Minutes())
		rep.Candidates = append(rep.Candidates, cand)
	}

	if len(rep.Candidates) == 0 {
		fmt.Fprintln(c.out, "\n✅ All projects healthy")
		return rep, nil
	}
	fmt.Fprintf(c.out, "\n⚠️  Found %d stuck task(s)\n", len(rep.Candidates))
	if !push {
		return rep, nil
	}

	fmt.Fprintln(c.out, "\n📤 Pushing...")
	for _, cand := range rep.Candidates {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		c.pushOne(ctx, &rep, cand, now)
	}
	return rep, nil
}

// CheckProject evaluates a single project. A missing or unreadable project
// returns ErrProjectNotFound.
func (c *Coordinator) CheckProject(ctx context.Context, id string, push bool) (Report, error) {
	var rep Report
	now := c.now()

	cand, ok, err := c.evaluate(id, now)
	if err != nil {
		if store.IsSkippable(err) {
			fmt.Fprintf(c.out, "❌ Project not found: %s\n", id)
			return rep, fmt.Errorf("%w: %s: %v", ErrProjectNotFound, id, err)
		}
		return rep, err
	}
	rep.Checked = 1

	fmt.Fprintf(c.out, "🔍 Checking project: %s\n", id)
	if !ok {
		fmt.Fprintln(c.out, "✅ Project healthy")
		return rep, nil
	}
	fmt.Fprintf(c.out, "⚠️  Stuck stage: %s\n", cand.Stage)
	fmt.Fprintf(c.out, "   Idle for: %.1f minutes\n", cand.StuckMinutes())
	rep.Candidates = append(rep.Candidates, cand)

	if push {
		fmt.Fprintln(c.out, "\n📤 Pushing...")
		c.pushOne(ctx, &rep, cand, now)
	}
	return rep, nil
}

// Status builds the read-only overview. It never touches the ledger.
func (c *Coordinator) Status() (status.Overview, error) {
	return status.Collect(c.store, c.evaluator, c.now())
}

func (c *Coordinator) evaluate(id string, now time.Time) (staleness.Candidate, bool, error) {
	p, err := c.store.Get(id)
	if err != nil {
		c.logger.Warn("project_load_failed", zap.String("project", id), zap.Error(err))
		return staleness.Candidate{}, false, err
	}
	cand, ok := c.evaluator.Evaluate(p, now)
	if ok {
		c.logger.Info("stage_stuck",
			zap.String("project", id),
			zap.String("stage", cand.Stage),
			zap.String("agent", cand.Agent),
			zap.Duration("idle", cand.StuckFor),
			zap.Duration("timeout", cand.Timeout))
	}
	return cand, ok, nil
}

func (c *Coordinator) pushOne(ctx context.Context, rep *Report, cand staleness.Candidate, now time.Time) {
	label := cand.ProjectID + "/" + cand.Stage
	o, err := c.push(ctx, cand, now)
	if err != nil {
		c.logger.Error("push_failed", zap.String("project", cand.ProjectID), zap.String("stage", cand.Stage), zap.Error(err))
		fmt.Fprintf(c.out, "  ❌ %s: %v\n", label, err)
		rep.Errors = append(rep.Errors, ProjectError{ProjectID: cand.ProjectID, Err: err})
		return
	}
	rep.Outcomes = append(rep.Outcomes, o)
	if o.Decision.Action == policy.RouteFailure {
		rep.RoutingFailures++
	}

	switch o.Entry.Result {
	case model.PushSuccess:
		fmt.Fprintf(c.out, "  ✅ %s: pushed (%d/%d)\n", label, o.Entry.PushCount, c.policy.MaxAttempts())
	case model.PushSkipped:
		fmt.Fprintf(c.out, "  ⏭️  %s: %s\n", label, o.Entry.Error)
	default:
		fmt.Fprintf(c.out, "  ❌ %s: %s\n", label, o.Entry.Error)
	}
}

// push decides, delivers when the decision is Send, and appends the ledger
// entry. An error means nothing was recorded.
func (c *Coordinator) push(ctx context.Context, cand staleness.Candidate, now time.Time) (Outcome, error) {
	d, err := c.policy.Decide(cand, now)
	if err != nil {
		return Outcome{}, err
	}

	id, err := model.GenerateID(model.IDTypePush)
	if err != nil {
		return Outcome{}, err
	}
	o := Outcome{Candidate: cand, Decision: d}
	o.Entry = model.PushLogEntry{
		ID:        id,
		Timestamp: model.FormatTimestamp(now),
		Project:   cand.ProjectID,
		Stage:     cand.Stage,
		Agent:     cand.Agent,
		Action:    model.ActionAutoPush,
		Result:    d.Result(),
		Reason:    d.Reason(),
		Error:     d.Message,
		PushCount: d.PushCount,
	}

	if d.Action == policy.Send {
		ack, err := notify.Deliver(ctx, c.notifier, d.Target, d.Payload, c.deliveryTimeout)
		if err != nil {
			o.Entry.Result = model.PushFailed
			o.Entry.Error = err.Error()
			o.Entry.PushCount = d.PushCount - 1
			c.logger.Warn("delivery_failed",
				zap.String("project", cand.ProjectID),
				zap.String("stage", cand.Stage),
				zap.String("target", d.Target),
				zap.Error(err))
		} else {
			o.Ack = ack
			c.logger.Info("push_sent",
				zap.String("project", cand.ProjectID),
				zap.String("stage", cand.Stage),
				zap.String("target", d.Target),
				zap.Int("attempt", d.PushCount))
		}
	}

	if err := c.ledger.Append(o.Entry); err != nil {
		return Outcome{}, fmt.Errorf("append push ledger: %w", err)
	}
	return o, nil
}
