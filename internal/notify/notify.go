// Package notify delivers push messages to agents.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/msageha/taskcoord/internal/model"
)

// ErrTimeout is returned by Deliver when the notifier does not answer in time.
var ErrTimeout = errors.New("delivery timed out")

// Payload is what an agent is told about its stalled stage.
type Payload struct {
	Project      string
	Stage        string
	Agent        string
	StuckMinutes float64
	Task         string
	PushedAt     time.Time
	Attempt      int
	MaxAttempts  int
}

// Render formats the message sent to the agent session.
func (p Payload) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[SYSTEM|AUTO-PUSH|%s|P1]\n\n", strings.ToUpper(p.Agent))
	b.WriteString("Auto-push: stalled task detected\n\n")
	fmt.Fprintf(&b, "Project: %s\n", p.Project)
	fmt.Fprintf(&b, "Stage: %s\n", p.Stage)
	fmt.Fprintf(&b, "Agent: %s\n", p.Agent)
	fmt.Fprintf(&b, "Stalled for: %.1f minutes\n\n", p.StuckMinutes)
	b.WriteString("Task:\n")
	b.WriteString(p.Task)
	b.WriteString("\n\nPlease handle it now or update progress.\n\n---\n")
	fmt.Fprintf(&b, "Pushed at: %s\n", p.PushedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Attempt: %d/%d\n", p.Attempt, p.MaxAttempts)
	return b.String()
}

// Ack is a notifier's confirmation of a send.
type Ack struct {
	Target string
	Bytes  int
	Detail string
}

// Notifier hands a message to the transport for target. It must honor ctx.
type Notifier interface {
	Send(ctx context.Context, target string, p Payload) (Ack, error)
}

// lateResultGrace is how long Deliver waits, once the deadline fires, for a send
// that is finishing at that moment.
const lateResultGrace = 100 * time.Millisecond

// Deliver calls n.Send with a deadline. A send still running at the deadline is
// abandoned and reported as ErrTimeout. A send that succeeds as the deadline
// fires is reported as delivered.
func Deliver(ctx context.Context, n Notifier, target string, p Payload, timeout time.Duration) (Ack, error) {
	if timeout <= 0 {
		return n.Send(ctx, target, p)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		ack Ack
		err error
	}
	done := make(chan result, 1)
	go func() {
		ack, err := n.Send(ctx, target, p)
		done <- result{ack, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Ack{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return r.ack, r.err
	case <-ctx.Done():
		select {
		case r := <-done:
			if r.err == nil {
				return r.ack, nil
			}
		case <-time.After(lateResultGrace):
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Ack{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return Ack{}, ctx.Err()
	}
}

// New builds the notifier named by cfg.Type.
func New(cfg model.NotifierConfig, logger *zap.Logger) (Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "", model.NotifierLog:
		return NewLogNotifier(logger), nil
	case model.NotifierDesktop:
		return NewDesktopNotifier(), nil
	case model.NotifierCommand:
		if len(cfg.Command) == 0 {
			return nil, errors.New("command notifier requires notifier.command")
		}
		return NewCommandNotifier(cfg.Command), nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}
