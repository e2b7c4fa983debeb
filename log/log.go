package log

import (
	"context"
	"io"
	stdlog "log"
	"os"

	console "github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type (
	Logger  = zerolog.Logger
	Context = zerolog.Context
	Event   = *zerolog.Event
)

var DefaultLogger *Logger

var (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
	PanicLevel = zerolog.PanicLevel

	SetLevel = zerolog.SetGlobalLevel
)

var (
	Err       = log.Err
	Trace     = log.Trace
	Debug     = log.Debug
	Info      = log.Info
	Warn      = log.Warn
	Error     = log.Error
	Fatal     = log.Fatal
	Panic     = log.Panic
	Log       = log.Log
	WithLevel = log.WithLevel
	Print     = log.Print
	Printf    = log.Printf
)

func init() {
	var w io.Writer = os.Stderr
	if console.IsTerminal(os.Stderr.Fd()) {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	zerolog.DefaultContextLogger = &log.Logger
	DefaultLogger = &log.Logger

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

// New constructs an independent logger writing to w.
// Useful for tests capturing diagnostics of a single instance.
func New(w io.Writer) Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func With() Context {
	return log.Logger.With()
}

func WithContext(ctx context.Context) context.Context {
	return log.Logger.WithContext(ctx)
}

func Ctx(ctx context.Context) *Logger {
	return zerolog.Ctx(ctx)
}
