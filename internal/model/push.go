package model

import "time"

// PushLogEntry is one line of the push ledger.
type PushLogEntry struct {
	ID        string     `json:"id,omitempty"`
	Timestamp string     `json:"timestamp"`
	Project   string     `json:"project"`
	Stage     string     `json:"stage"`
	Agent     string     `json:"agent,omitempty"`
	Action    string     `json:"action"`
	Result    PushResult `json:"result"`
	Reason    SkipReason `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
	PushCount int        `json:"push_count"`
}

// Time parses the entry timestamp; the zero time is returned for unparseable values.
func (e PushLogEntry) Time() time.Time {
	t, err := ParseTimestamp(e.Timestamp, nil)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsSuccessfulPush reports whether the entry counts toward attempts and cooldown.
func (e PushLogEntry) IsSuccessfulPush() bool {
	return e.Action == ActionAutoPush && e.Result == PushSuccess
}
