package mailer

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// LogProvider writes emails to the application log instead of delivering
// them. Used when no API key is configured, typically in development.
type LogProvider struct {
	Logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{Logger: logger}
}

func (l *LogProvider) Name() string {
	return "log"
}

func (l *LogProvider) Send(msg Message) (Receipt, error) {
	id := "log-" + uuid.New().String()
	l.Logger.Info("email logged instead of sent",
		"from", msg.From,
		"to", strings.Join(msg.To, ", "),
		"subject", msg.Subject,
		"message_id", id,
	)
	if msg.Text != "" {
		l.Logger.Info("email text body", "text", msg.Text)
	}
	return Receipt{MessageID: id}, nil
}
