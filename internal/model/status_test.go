package model

import "testing"

func TestIsActive(t *testing.T) {
	tests := []struct {
		status StageStatus
		active bool
	}{
		{StagePending, true},
		{StageInProgress, true},
		{StageDone, false},
		{StageFailed, false},
		{StageSkipped, false},
		{"blocked", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := IsActive(tt.status); got != tt.active {
				t.Errorf("IsActive(%q) = %v, want %v", tt.status, got, tt.active)
			}
		})
	}
}

func TestParseStageStatus(t *testing.T) {
	if _, err := ParseStageStatus("in-progress"); err != nil {
		t.Errorf("in-progress: unexpected error %v", err)
	}
	if _, err := ParseStageStatus("in_progress"); err == nil {
		t.Error("in_progress: expected error for underscore spelling")
	}
}

func TestIsKnownMode(t *testing.T) {
	for _, m := range []Mode{ModeLinear, ModeDAG, ModeDebate} {
		if !IsKnownMode(m) {
			t.Errorf("IsKnownMode(%q) = false", m)
		}
	}
	if IsKnownMode("swarm") {
		t.Error("IsKnownMode(swarm) = true")
	}
}
