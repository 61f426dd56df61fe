package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier does not deliver anything; it logs what would have been sent.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify")}
}

func (n *LogNotifier) Send(ctx context.Context, target string, p Payload) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	msg := p.Render()
	n.logger.Info("push_simulated",
		zap.String("target", target),
		zap.String("project", p.Project),
		zap.String("stage", p.Stage),
		zap.Int("message_length", len(msg)))
	return Ack{Target: target, Bytes: len(msg), Detail: "simulated"}, nil
}
