// Package logger wraps zerolog with the handful of calls the stock market
// services need: leveled messages and field, error and multi-field children.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexboumb/SuperSimpleStocks2/pkg/config"
)

// Logger is a structured logger backed by zerolog
type Logger struct {
	zlog zerolog.Logger
}

// New creates a Logger from config writing to stderr.
// The interactive shell owns stdout, so log lines never go there.
func New(cfg *config.Config) *Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates a Logger writing to out.
// LOG_FORMAT "console" or "pretty" selects zerolog's human-readable writer;
// anything else writes one JSON object per line.
func NewWithWriter(cfg *config.Config, out io.Writer) *Logger {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	zlog := zerolog.New(formatWriter(cfg.LogFormat, out)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a Logger that discards everything.
// Components default to it when no logger is injected.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func formatWriter(format string, out io.Writer) io.Writer {
	switch strings.ToLower(format) {
	case "console", "pretty":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return out
	}
}

// parseLogLevel maps LOG_LEVEL to a zerolog level, info when unknown
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string) { l.zlog.Debug().Msg(msg) }

func (l *Logger) Info(msg string) { l.zlog.Info().Msg(msg) }

func (l *Logger) Warn(msg string) { l.zlog.Warn().Msg(msg) }

func (l *Logger) Error(msg string) { l.zlog.Error().Msg(msg) }

// WithField returns a child logger carrying key
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Interface(key, value).Logger()}
}

// WithFields returns a child logger carrying every entry of fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Fields(fields).Logger()}
}

// WithError returns a child logger with err under the "error" key
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zlog: l.zlog.With().Err(err).Logger()}
}
