package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/env"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	// Level is a zerolog level name. Blank or unknown names mean info.
	Level       string
	WarnStack   bool
	Output      io.Writer
	File        *FileOptions
}

// FileOptions mirrors log output into a size-rotated file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger writes JSON lines (or console output with LOG_FORMAT=console).
// Fields attached to a context with WithField travel with the request and
// are emitted by whichever Logger writes the line.
type Logger struct {
	base      zerolog.Logger
	warnStack bool
	closer    io.Closer
}

type field struct {
	key   string
	value any
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out, closer := buildOutput(opts)
	return &Logger{
		base: zerolog.New(out).
			Level(ParseLevel(opts.Level)).
			With().
			Timestamp().
			Str("service", opts.ServiceName).
			Logger(),
		warnStack: opts.WarnStack,
		closer:    closer,
	}
}

func buildOutput(opts Options) (io.Writer, io.Closer) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if env.Get("LOG_FORMAT", "json") == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	if opts.File == nil || strings.TrimSpace(opts.File.Path) == "" {
		return out, nil
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.File.Path,
		MaxSize:    opts.File.MaxSizeMB,
		MaxBackups: opts.File.MaxBackups,
		MaxAge:     opts.File.MaxAgeDays,
		Compress:   true,
	}
	return zerolog.MultiLevelWriter(out, rotating), rotating
}

// FromAppConfig builds the service logger from the loaded app settings.
func FromAppConfig(serviceName string, app config.AppConfig) *Logger {
	opts := Options{
		ServiceName: serviceName,
		Level:       app.LogLevel,
		WarnStack:   app.LogWarnStack,
	}
	if strings.TrimSpace(app.LogFile) != "" {
		opts.File = &FileOptions{
			Path:       app.LogFile,
			MaxSizeMB:  app.LogMaxSizeMB,
			MaxBackups: app.LogMaxBackups,
			MaxAgeDays: app.LogMaxAgeDays,
		}
	}
	return New(opts)
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Close flushes the rotating file writer when one is configured.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func contextFields(ctx context.Context) []field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]field)
	return fields
}

func withFields(ctx context.Context, extra ...field) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	current := contextFields(ctx)
	merged := make([]field, 0, len(current)+len(extra))
	merged = append(merged, current...)
	merged = append(merged, extra...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return withFields(ctx, field{key: key, value: value})
}

// WithFields attaches fields in key order so output is stable.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	extra := make([]field, 0, len(keys))
	for _, k := range keys {
		extra = append(extra, field{key: k, value: fields[k]})
	}
	return withFields(ctx, extra...)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) WithBroadcastID(ctx context.Context, broadcastID string) context.Context {
	return l.WithField(ctx, "broadcast_id", broadcastID)
}

func (l *Logger) emit(ctx context.Context, event *zerolog.Event, msg string) {
	if event == nil {
		return
	}
	for _, f := range contextFields(ctx) {
		event = event.Interface(f.key, f.value)
	}
	event.Msg(msg)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.emit(ctx, l.base.Debug(), msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.emit(ctx, l.base.Info(), msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.base.Warn()
	if l.warnStack && event.Enabled() {
		event = event.Str("stack", stackTrace())
	}
	l.emit(ctx, event, msg)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.base.Error()
	if !event.Enabled() {
		return
	}
	if err != nil {
		event = event.Err(err)
	}
	l.emit(ctx, event.Str("stack", stackTrace()), msg)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
