package notify

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. The
// default backend until a real mail provider is wired via configuration.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	attachment := ""
	if msg.Attachment != nil {
		attachment = msg.Attachment.Filename
	}
	s.logger.InfoContext(ctx, "notification",
		"to", msg.To,
		"subject", msg.Subject,
		"attachment", attachment,
	)
	return nil
}
