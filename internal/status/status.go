// Package status renders the read-only project/stage overview.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/msageha/taskcoord/internal/model"
	"github.com/msageha/taskcoord/internal/staleness"
	"github.com/msageha/taskcoord/internal/store"
)

type Overview struct {
	ProjectsDir string    `json:"projects_dir,omitempty"`
	LogsDir     string    `json:"logs_dir,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`

	// Agents are the agent ids with a delivery route.
	Agents   []string      `json:"agents,omitempty"`
	Projects []ProjectView `json:"projects"`
}

type ProjectView struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Mode   model.Mode  `json:"mode,omitempty"`
	Status string      `json:"status,omitempty"`
	Stages []StageView `json:"stages,omitempty"`
	Error  string      `json:"error,omitempty"`

	// Warnings flag values team-tasks does not write, such as an unknown stage status.
	Warnings []string `json:"warnings,omitempty"`
}

type StageView struct {
	Name           string            `json:"name"`
	Agent          string            `json:"agent"`
	Status         model.StageStatus `json:"status"`
	TimeoutMinutes float64           `json:"timeout_minutes"`
	LastActivity   *time.Time        `json:"last_activity,omitempty"`
	IdleMinutes    float64           `json:"idle_minutes,omitempty"`
	Stuck          bool              `json:"stuck"`
}

// Collect reads every project. A project that cannot be loaded is listed with
// its error instead of stages.
func Collect(s store.Store, e *staleness.Evaluator, now time.Time) (Overview, error) {
	ov := Overview{GeneratedAt: now}
	ids, err := s.List()
	if err != nil {
		return ov, err
	}
	for _, id := range ids {
		p, err := s.Get(id)
		if err != nil {
			ov.Projects = append(ov.Projects, ProjectView{ID: id, Name: id, Error: err.Error()})
			continue
		}
		ov.Projects = append(ov.Projects, view(p, e, now))
	}
	return ov, nil
}

func view(p *model.Project, e *staleness.Evaluator, now time.Time) ProjectView {
	pv := ProjectView{
		ID:     p.ID,
		Name:   p.DisplayName(),
		Mode:   p.Mode,
		Status: p.Status,
	}
	if p.Mode != "" && !model.IsKnownMode(p.Mode) {
		pv.Warnings = append(pv.Warnings, fmt.Sprintf("unknown mode %q", p.Mode))
	}
	for _, r := range e.Inspect(p, now) {
		if _, err := model.ParseStageStatus(string(r.Status)); err != nil {
			pv.Warnings = append(pv.Warnings, fmt.Sprintf("stage %s: %v", r.Stage, err))
		}
		sv := StageView{
			Name:           r.Stage,
			Agent:          r.Agent,
			Status:         r.Status,
			TimeoutMinutes: r.Timeout.Minutes(),
			Stuck:          r.Stuck,
		}
		if r.HasActivity {
			last := r.LastActivity
			sv.LastActivity = &last
			sv.IdleMinutes = r.IdleFor.Minutes()
		}
		pv.Stages = append(pv.Stages, sv)
	}
	return pv
}

// Print writes ov as indented JSON or as text.
func Print(w io.Writer, ov Overview, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ov)
	}
	printStatus(w, ov)
	return nil
}

var statusIcons = map[model.StageStatus]string{
	model.StagePending:    "⬜",
	model.StageInProgress: "🔄",
	model.StageDone:       "✅",
	model.StageFailed:     "❌",
	model.StageSkipped:    "⏭️",
}

func printStatus(w io.Writer, ov Overview) {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)
	name := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FAFFF"))
	stuck := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	dim := r.NewStyle().Foreground(lipgloss.Color("#888888"))

	fmt.Fprintln(w, header.Render("Task Coordinator status"))
	if ov.ProjectsDir != "" {
		fmt.Fprintf(w, "Projects dir: %s\n", ov.ProjectsDir)
	}
	if ov.LogsDir != "" {
		fmt.Fprintf(w, "Logs dir:     %s\n", ov.LogsDir)
	}
	if len(ov.Agents) > 0 {
		fmt.Fprintf(w, "Agents:       %s\n", strings.Join(ov.Agents, ", "))
	}
	fmt.Fprintf(w, "Projects:     %d\n", len(ov.Projects))

	for _, p := range ov.Projects {
		fmt.Fprintf(w, "\n  %s:\n", name.Render(p.Name))
		if p.Error != "" {
			fmt.Fprintf(w, "    %s\n", stuck.Render("unreadable: "+p.Error))
			continue
		}
		for _, s := range p.Stages {
			icon, ok := statusIcons[s.Status]
			if !ok {
				icon = "❓"
			}
			line := fmt.Sprintf("    %s %s (%s): %s", icon, s.Name, s.Agent, s.Status)
			if s.LastActivity != nil {
				line += dim.Render(", last activity " + humanize.RelTime(*s.LastActivity, ov.GeneratedAt, "ago", "from now"))
			}
			if s.Stuck {
				line += " " + stuck.Render(fmt.Sprintf("STUCK (timeout %gm)", s.TimeoutMinutes))
			}
			fmt.Fprintln(w, line)
		}
		for _, warn := range p.Warnings {
			fmt.Fprintf(w, "    %s\n", dim.Render("warning: "+warn))
		}
	}
}
