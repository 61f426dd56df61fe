package model

import "fmt"

// StageStatus is the lifecycle status of a pipeline stage as written by team-tasks.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in-progress"
	StageDone       StageStatus = "done"
	StageFailed     StageStatus = "failed"
	StageSkipped    StageStatus = "skipped"
)

type Mode string

const (
	ModeLinear Mode = "linear"
	ModeDAG    Mode = "dag"
	ModeDebate Mode = "debate"
)

// Only active stages can be stuck.
var activeStatuses = map[StageStatus]bool{
	StagePending:    true,
	StageInProgress: true,
}

var terminalStatuses = map[StageStatus]bool{
	StageDone:    true,
	StageFailed:  true,
	StageSkipped: true,
}

var knownModes = map[Mode]bool{
	ModeLinear: true,
	ModeDAG:    true,
	ModeDebate: true,
}

func IsActive(s StageStatus) bool {
	return activeStatuses[s]
}

func ParseStageStatus(s string) (StageStatus, error) {
	st := StageStatus(s)
	if !activeStatuses[st] && !terminalStatuses[st] {
		return "", fmt.Errorf("unknown stage status %q", s)
	}
	return st, nil
}

func IsKnownMode(m Mode) bool {
	return knownModes[m]
}

// PushResult is the outcome recorded for one push decision.
type PushResult string

const (
	PushSuccess PushResult = "success"
	PushSkipped PushResult = "skipped"
	PushFailed  PushResult = "failed"
)

type SkipReason string

const (
	ReasonCooldown    SkipReason = "cooldown"
	ReasonMaxAttempts SkipReason = "max-attempts"
)

// ActionAutoPush is the only ledger action the coordinator writes.
const ActionAutoPush = "auto-push"
