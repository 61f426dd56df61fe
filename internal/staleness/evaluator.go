// Package staleness finds pipeline stages that have gone quiet past their
// agent's timeout.
package staleness

import (
	"time"

	"github.com/msageha/taskcoord/internal/model"
	"github.com/msageha/taskcoord/internal/roster"
)

// Candidate is a stage that is pending or in progress and idle past its timeout.
// It is recomputed on every pass and never persisted.
type Candidate struct {
	ProjectID    string
	ProjectName  string
	Stage        string
	Agent        string
	Status       model.StageStatus
	Task         string
	LastActivity time.Time
	StuckFor     time.Duration
	Timeout      time.Duration
}

func (c Candidate) StuckMinutes() float64 {
	return c.StuckFor.Minutes()
}

// StageReport is the evaluation of a single stage, stuck or not.
type StageReport struct {
	Stage        string
	Agent        string
	Status       model.StageStatus
	Timeout      time.Duration
	LastActivity time.Time
	HasActivity  bool
	IdleFor      time.Duration
	Stuck        bool
}

type Evaluator struct {
	roster *roster.Roster
	loc    *time.Location
}

// New creates an Evaluator. Naive timestamps are read in loc (time.Local when nil).
func New(r *roster.Roster, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{roster: r, loc: loc}
}

// Inspect evaluates every stage in file order.
func (e *Evaluator) Inspect(p *model.Project, now time.Time) []StageReport {
	stages := p.StageList()
	out := make([]StageReport, 0, len(stages))
	for _, ns := range stages {
		out = append(out, e.inspectStage(ns, now))
	}
	return out
}

func (e *Evaluator) inspectStage(ns model.NamedStage, now time.Time) StageReport {
	agent := e.roster.Resolve(ns.Name, ns.Stage.Agent)
	r := StageReport{
		Stage:   ns.Name,
		Agent:   agent,
		Status:  ns.Stage.Status,
		Timeout: e.roster.Timeout(agent, ns.Name),
	}
	r.LastActivity, r.HasActivity = ns.Stage.LastActivity(e.loc)
	if r.HasActivity {
		r.IdleFor = now.Sub(r.LastActivity)
	}
	r.Stuck = model.IsActive(r.Status) && r.HasActivity && r.IdleFor > r.Timeout
	return r
}

// Scan returns every stuck stage of p, in file order.
func (e *Evaluator) Scan(p *model.Project, now time.Time) []Candidate {
	var out []Candidate
	for _, ns := range p.StageList() {
		if !model.IsActive(ns.Stage.Status) {
			continue
		}
		r := e.inspectStage(ns, now)
		if !r.Stuck {
			continue
		}
		out = append(out, Candidate{
			ProjectID:    p.ID,
			ProjectName:  p.DisplayName(),
			Stage:        ns.Name,
			Agent:        r.Agent,
			Status:       r.Status,
			Task:         ns.Stage.Task,
			LastActivity: r.LastActivity,
			StuckFor:     r.IdleFor,
			Timeout:      r.Timeout,
		})
	}
	return out
}

// Evaluate returns the first stuck stage of p. A project yields at most one
// candidate per pass; later stuck stages are picked up on later passes.
func (e *Evaluator) Evaluate(p *model.Project, now time.Time) (Candidate, bool) {
	all := e.Scan(p, now)
	if len(all) == 0 {
		return Candidate{}, false
	}
	return all[0], true
}
