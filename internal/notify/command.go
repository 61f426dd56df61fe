package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// TargetPlaceholder in a command argument is replaced with the delivery target.
const TargetPlaceholder = "{target}"

// CommandNotifier runs an external command per push, e.g. a wrapper around the
// agent gateway's "sessions send". The rendered message is written to stdin.
type CommandNotifier struct {
	argv []string
}

func NewCommandNotifier(argv []string) *CommandNotifier {
	return &CommandNotifier{argv: append([]string(nil), argv...)}
}

func (n *CommandNotifier) Send(ctx context.Context, target string, p Payload) (Ack, error) {
	if len(n.argv) == 0 {
		return Ack{}, errors.New("command notifier: empty command")
	}
	args := make([]string, len(n.argv))
	for i, a := range n.argv {
		args[i] = strings.ReplaceAll(a, TargetPlaceholder, target)
	}

	msg := p.Render()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(msg)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return Ack{}, fmt.Errorf("%s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return Ack{Target: target, Bytes: len(msg), Detail: strings.TrimSpace(out.String())}, nil
}
