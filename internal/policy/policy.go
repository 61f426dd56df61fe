// Package policy decides whether a stuck stage gets a push.
package policy

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/msageha/taskcoord/internal/ledger"
	"github.com/msageha/taskcoord/internal/model"
	"github.com/msageha/taskcoord/internal/notify"
	"github.com/msageha/taskcoord/internal/roster"
	"github.com/msageha/taskcoord/internal/staleness"
)

type Action string

const (
	Send            Action = "send"
	SkipCooldown    Action = "skip-cooldown"
	SkipMaxAttempts Action = "skip-max-attempts"
	RouteFailure    Action = "route-failure"
)

// Decision is the outcome of Decide. PushCount is what the ledger entry records:
// today's count + 1 for Send, today's count otherwise.
type Decision struct {
	Action            Action
	Target            string
	PushCount         int
	CooldownRemaining float64
	Message           string
	Payload           notify.Payload
}

// Result maps the decision to a ledger result before delivery. A Send becomes
// success or failed only once the notifier answers.
func (d Decision) Result() model.PushResult {
	switch d.Action {
	case SkipCooldown, SkipMaxAttempts:
		return model.PushSkipped
	case RouteFailure:
		return model.PushFailed
	default:
		return model.PushSuccess
	}
}

func (d Decision) Reason() model.SkipReason {
	switch d.Action {
	case SkipCooldown:
		return model.ReasonCooldown
	case SkipMaxAttempts:
		return model.ReasonMaxAttempts
	default:
		return ""
	}
}

type Policy struct {
	roster *roster.Roster
	ledger ledger.Ledger
	cfg    model.PushConfig
}

func New(r *roster.Roster, l ledger.Ledger, cfg model.PushConfig) *Policy {
	return &Policy{roster: r, ledger: l, cfg: cfg}
}

func (p *Policy) MaxAttempts() int {
	return p.cfg.MaxAttempts
}

// Decide applies, in order: routing, attempt cap, cooldown. Only ledger errors
// are returned as errors; a missing route is a RouteFailure decision.
func (p *Policy) Decide(c staleness.Candidate, now time.Time) (Decision, error) {
	target, routed := p.roster.Route(c.Agent, c.Stage)

	stats, err := p.ledger.Stats(c.ProjectID, c.Stage, now)
	if err != nil {
		return Decision{}, fmt.Errorf("push stats for %s/%s: %w", c.ProjectID, c.Stage, err)
	}

	d := Decision{Target: target, PushCount: stats.Count}
	switch {
	case !routed:
		d.Action = RouteFailure
		d.Message = "Unknown agent: " + c.Agent
	case stats.Count >= p.cfg.MaxAttempts:
		d.Action = SkipMaxAttempts
		d.Message = fmt.Sprintf("Max push attempts reached (%d)", p.cfg.MaxAttempts)
	case stats.HasSuccess() && now.Sub(stats.LastSuccess) < p.cfg.Cooldown:
		elapsed := now.Sub(stats.LastSuccess)
		d.Action = SkipCooldown
		d.CooldownRemaining = round1((p.cfg.Cooldown - elapsed).Minutes())
		d.Message = fmt.Sprintf("Cooldown active (%.1fm < %sm), skip duplicate push",
			elapsed.Minutes(), strconv.FormatFloat(p.cfg.Cooldown.Minutes(), 'f', -1, 64))
	default:
		d.Action = Send
		d.PushCount = stats.Count + 1
		d.Payload = notify.Payload{
			Project:      c.ProjectName,
			Stage:        c.Stage,
			Agent:        c.Agent,
			StuckMinutes: c.StuckMinutes(),
			Task:         c.Task,
			PushedAt:     now,
			Attempt:      d.PushCount,
			MaxAttempts:  p.cfg.MaxAttempts,
		}
	}
	return d, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
