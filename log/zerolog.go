package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// zerologAdapter implements Logger on top of zerolog, the structured
// logger used elsewhere in this codebase's ambient stack.
type zerologAdapter struct {
	l zerolog.Logger
}

// NewZerologLogger returns a Logger writing structured, leveled output
// to w. Pass nil to log to stderr.
func NewZerologLogger(w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerologAdapter{l: zerolog.New(w).With().Timestamp().Logger()}
}

func (z zerologAdapter) Debug(msg string, keyvals ...interface{}) {
	withFields(z.l.Debug(), keyvals).Msg(msg)
}

func (z zerologAdapter) Info(msg string, keyvals ...interface{}) {
	withFields(z.l.Info(), keyvals).Msg(msg)
}

func (z zerologAdapter) Error(msg string, keyvals ...interface{}) {
	withFields(z.l.Error(), keyvals).Msg(msg)
}

func (z zerologAdapter) With(keyvals ...interface{}) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		ctx = ctx.Interface(toKey(keyvals[i]), keyvals[i+1])
	}
	return zerologAdapter{l: ctx.Logger()}
}

func withFields(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		e = e.Interface(toKey(keyvals[i]), keyvals[i+1])
	}
	return e
}

func toKey(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "field"
}
