package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"urbannest/internal/domain"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if env == "dev" || env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return l
}

// LogNotifier routes user-facing toast messages into the structured log.
// API deployments surface the same text through HTTP responses; this keeps a
// server-side trail of every success/failure message emitted.
type LogNotifier struct{ l zerolog.Logger }

func NewLogNotifier(l zerolog.Logger) *LogNotifier { return &LogNotifier{l: l} }

func (n *LogNotifier) Notify(kind domain.NotifyKind, text string) {
	switch kind {
	case domain.NotifyError:
		n.l.Warn().Str("kind", string(kind)).Msg(text)
	default:
		n.l.Info().Str("kind", string(kind)).Msg(text)
	}
}
