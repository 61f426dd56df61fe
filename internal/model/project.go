package model

import (
	"encoding/json"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Project is one team-tasks project file. Older files use "name" instead of "project".
type Project struct {
	ID        string   `json:"-"`
	Project   string   `json:"project,omitempty"`
	Name      string   `json:"name,omitempty"`
	Goal      string   `json:"goal"`
	Mode      Mode     `json:"mode"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"created_at"`
	Pipeline  []string `json:"pipeline,omitempty"`

	// Stages keeps the file's key order; evaluation walks it front to back.
	Stages *orderedmap.OrderedMap[string, *Stage] `json:"stages"`
}

type Stage struct {
	Status      StageStatus `json:"status"`
	Agent       string      `json:"agent,omitempty"`
	Task        string      `json:"task"`
	Output      string      `json:"output"`
	Logs        []LogEntry  `json:"logs"`
	StartedAt   string      `json:"startedAt,omitempty"`
	CompletedAt string      `json:"completedAt,omitempty"`
}

// LogEntry is a stage log line. New files write "time", old ones "timestamp".
type LogEntry struct {
	Time      string `json:"time,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Action    string `json:"action"`
}

// NamedStage pairs a stage with its key in the project's stage map.
type NamedStage struct {
	Name  string
	Stage *Stage
}

func NewProject(id string) *Project {
	return &Project{
		ID:     id,
		Mode:   ModeLinear,
		Status: "active",
		Stages: orderedmap.New[string, *Stage](),
	}
}

// DisplayName returns the human name, falling back to the store key.
func (p *Project) DisplayName() string {
	if p.Project != "" {
		return p.Project
	}
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// StageList returns the stages in file order. A project without stages yields nil.
func (p *Project) StageList() []NamedStage {
	if p.Stages == nil {
		return nil
	}
	out := make([]NamedStage, 0, p.Stages.Len())
	for pair := p.Stages.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			continue
		}
		out = append(out, NamedStage{Name: pair.Key, Stage: pair.Value})
	}
	return out
}

// SetStage adds or replaces a stage, keeping the position of an existing key.
func (p *Project) SetStage(name string, s *Stage) {
	if p.Stages == nil {
		p.Stages = orderedmap.New[string, *Stage]()
	}
	p.Stages.Set(name, s)
}

func (p *Project) Stage(name string) (*Stage, bool) {
	if p.Stages == nil {
		return nil, false
	}
	s, ok := p.Stages.Get(name)
	return s, ok && s != nil
}

// UnmarshalJSON reads the fields staleness decisions need strictly. The rest
// keep their previous value when the file holds another JSON type.
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		Project   json.RawMessage `json:"project"`
		Name      json.RawMessage `json:"name"`
		Goal      json.RawMessage `json:"goal"`
		Mode      json.RawMessage `json:"mode"`
		Status    json.RawMessage `json:"status"`
		CreatedAt json.RawMessage `json:"created_at"`
		Pipeline  json.RawMessage `json:"pipeline"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	lenient(aux.Project, &p.Project)
	lenient(aux.Name, &p.Name)
	lenient(aux.Goal, &p.Goal)
	lenient(aux.Mode, &p.Mode)
	lenient(aux.Status, &p.Status)
	lenient(aux.CreatedAt, &p.CreatedAt)
	lenient(aux.Pipeline, &p.Pipeline)
	return nil
}

// UnmarshalJSON requires status, agent and logs to have their JSON types.
func (s *Stage) UnmarshalJSON(data []byte) error {
	type plain Stage
	aux := struct {
		*plain
		Task        json.RawMessage `json:"task"`
		Output      json.RawMessage `json:"output"`
		StartedAt   json.RawMessage `json:"startedAt"`
		CompletedAt json.RawMessage `json:"completedAt"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	lenient(aux.Task, &s.Task)
	lenient(aux.Output, &s.Output)
	lenient(aux.StartedAt, &s.StartedAt)
	lenient(aux.CompletedAt, &s.CompletedAt)
	return nil
}

func lenient[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

func (e LogEntry) When() string {
	if e.Time != "" {
		return e.Time
	}
	return e.Timestamp
}

// LastActivity is the latest of the last parseable log timestamp, startedAt and
// completedAt. ok is false when none of them can be determined.
func (s *Stage) LastActivity(loc *time.Location) (last time.Time, ok bool) {
	consider := func(raw string) bool {
		t, err := ParseTimestamp(raw, loc)
		if err != nil {
			return false
		}
		if !ok || t.After(last) {
			last, ok = t, true
		}
		return true
	}
	for i := len(s.Logs) - 1; i >= 0; i-- {
		if consider(s.Logs[i].When()) {
			break
		}
	}
	consider(s.StartedAt)
	consider(s.CompletedAt)
	return last, ok
}
