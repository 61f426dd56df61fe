package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `{
  "project": "p1",
  "goal": "ship it",
  "mode": "linear",
  "status": "active",
  "created_at": "2026-02-17T10:00:00",
  "stages": {
    "code": {"status": "done", "agent": "code-agent", "task": "write", "output": "ok", "logs": []},
    "test": {"status": "in-progress", "task": "verify", "output": "", "logs": [
      {"time": "2026-02-17T10:05:00Z", "action": "started"}
    ]},
    "docs": {"status": "pending", "task": "", "output": "", "logs": []}
  }
}`

func TestProjectUnmarshal_PreservesStageOrder(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(sampleProject), &p))

	stages := p.StageList()
	require.Len(t, stages, 3)
	assert.Equal(t, "code", stages[0].Name)
	assert.Equal(t, "test", stages[1].Name)
	assert.Equal(t, "docs", stages[2].Name)
	assert.Equal(t, StageInProgress, stages[1].Stage.Status)
	assert.Equal(t, "p1", p.DisplayName())
}

func TestProjectMarshal_RoundTripKeepsOrder(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(sampleProject), &p))

	data, err := json.Marshal(&p)
	require.NoError(t, err)

	var again Project
	require.NoError(t, json.Unmarshal(data, &again))
	names := []string{}
	for _, s := range again.StageList() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"code", "test", "docs"}, names)
}

func TestProjectUnmarshal_ToleratesUnusedFieldTypes(t *testing.T) {
	doc := `{
  "project": "p1",
  "goal": {"text": "ship it"},
  "created_at": 1771322400,
  "pipeline": "code,test",
  "stages": {
    "code": {
      "status": "in-progress",
      "agent": "code-agent",
      "task": "write",
      "output": {"files": 3},
      "startedAt": 1771322400,
      "logs": [{"time": "2026-02-17T10:05:00Z", "action": "started"}]
    }
  }
}`
	p := NewProject("p1")
	require.NoError(t, json.Unmarshal([]byte(doc), p))

	assert.Equal(t, "p1", p.DisplayName())
	assert.Empty(t, p.Goal)
	assert.Empty(t, p.CreatedAt)
	assert.Nil(t, p.Pipeline)
	assert.Equal(t, ModeLinear, p.Mode, "absent mode keeps the default")

	s, ok := p.Stage("code")
	require.True(t, ok)
	assert.Equal(t, StageInProgress, s.Status)
	assert.Equal(t, "code-agent", s.Agent)
	assert.Equal(t, "write", s.Task)
	assert.Empty(t, s.Output)
	assert.Empty(t, s.StartedAt)
	require.Len(t, s.Logs, 1)

	last, ok := s.LastActivity(time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 17, 10, 5, 0, 0, time.UTC), last.UTC())
}

func TestProjectUnmarshal_DecisionFieldsAreStrict(t *testing.T) {
	docs := []string{
		`{"stages": {"code": {"status": 3}}}`,
		`{"stages": {"code": {"status": "pending", "agent": ["a"]}}}`,
		`{"stages": {"code": {"status": "pending", "logs": "none"}}}`,
		`{"stages": "code"}`,
	}
	for _, doc := range docs {
		var p Project
		assert.Error(t, json.Unmarshal([]byte(doc), &p), doc)
	}
}

func TestDisplayName_Fallbacks(t *testing.T) {
	p := NewProject("file-stem")
	assert.Equal(t, "file-stem", p.DisplayName())
	p.Name = "legacy"
	assert.Equal(t, "legacy", p.DisplayName())
	p.Project = "current"
	assert.Equal(t, "current", p.DisplayName())
}

func TestStageLastActivity(t *testing.T) {
	loc := time.FixedZone("test", 8*3600)
	tests := []struct {
		name  string
		stage Stage
		want  time.Time
		ok    bool
	}{
		{
			name:  "no data",
			stage: Stage{Status: StageInProgress},
			ok:    false,
		},
		{
			name: "last log wins over older startedAt",
			stage: Stage{
				StartedAt: "2026-02-17T09:00:00+08:00",
				Logs: []LogEntry{
					{Time: "2026-02-17T09:10:00+08:00", Action: "a"},
					{Timestamp: "2026-02-17T09:30:00+08:00", Action: "b"},
				},
			},
			want: time.Date(2026, 2, 17, 9, 30, 0, 0, loc),
			ok:   true,
		},
		{
			name: "completedAt newer than logs",
			stage: Stage{
				CompletedAt: "2026-02-17T11:00:00+08:00",
				Logs:        []LogEntry{{Time: "2026-02-17T09:10:00+08:00"}},
			},
			want: time.Date(2026, 2, 17, 11, 0, 0, 0, loc),
			ok:   true,
		},
		{
			name: "unparseable last log falls back to earlier log",
			stage: Stage{
				Logs: []LogEntry{
					{Time: "2026-02-17T09:10:00"},
					{Time: "yesterday-ish"},
				},
			},
			want: time.Date(2026, 2, 17, 9, 10, 0, 0, loc),
			ok:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.stage.LastActivity(loc)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("local", -5*3600)
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2026-02-17T10:00:00Z", time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)},
		{"2026-02-17T10:00:00+00:00", time.Date(2026, 2, 17, 10, 0, 0, 0, time.UTC)},
		{"2026-02-17T10:00:00.123456", time.Date(2026, 2, 17, 10, 0, 0, 123456000, loc)},
		{"2026-02-17T10:00:00", time.Date(2026, 2, 17, 10, 0, 0, 0, loc)},
		{"2026-02-17 10:00:00", time.Date(2026, 2, 17, 10, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw, loc)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	_, err := ParseTimestamp("", loc)
	assert.Error(t, err)
	_, err = ParseTimestamp("not a time", loc)
	assert.Error(t, err)
}

func TestPushLogEntry_IsSuccessfulPush(t *testing.T) {
	assert.True(t, PushLogEntry{Action: ActionAutoPush, Result: PushSuccess}.IsSuccessfulPush())
	assert.False(t, PushLogEntry{Action: ActionAutoPush, Result: PushSkipped}.IsSuccessfulPush())
	assert.False(t, PushLogEntry{Action: "manual", Result: PushSuccess}.IsSuccessfulPush())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Push.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Push.Cooldown)
	assert.Equal(t, 10*time.Minute, cfg.Agents.DefaultTimeout)
	assert.Equal(t, "qa-agent", cfg.Agents.Aliases["scsun-qa-agent"])
}
