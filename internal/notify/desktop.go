package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// DesktopNotifier shows a macOS notification via osascript. The target is
// shown as the subtitle since there is no session to deliver to.
type DesktopNotifier struct {
	run runFunc
}

func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{run: runCombined}
}

func (n *DesktopNotifier) Send(ctx context.Context, target string, p Payload) (Ack, error) {
	script := desktopScript(target, p)
	if out, err := n.run(ctx, "osascript", "-e", script); err != nil {
		return Ack{}, fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return Ack{Target: target, Bytes: len(script), Detail: "desktop"}, nil
}

func desktopScript(target string, p Payload) string {
	title := escapeAppleScript(fmt.Sprintf("Stalled: %s/%s", p.Project, p.Stage))
	message := escapeAppleScript(fmt.Sprintf("%s idle %.1fm (attempt %d/%d)", p.Agent, p.StuckMinutes, p.Attempt, p.MaxAttempts))
	return fmt.Sprintf(`display notification "%s" with title "%s" subtitle "%s" sound name "default"`,
		message, title, escapeAppleScript(target))
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
