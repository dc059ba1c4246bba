package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// attribute keys whose values must never reach the log sink
var secretKeys = map[string]struct{}{
	"password":      {},
	"hashed_pwd":    {},
	"token":         {},
	"authorization": {},
	"jwt_secret":    {},
}

// NewLogger returns a JSON logger that also stamps trace/span ids from the context.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSecrets,
	})

	return slog.New(NewTraceHandler(handler)).With("env", env)
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, "[redacted]")
	}

	return a
}
