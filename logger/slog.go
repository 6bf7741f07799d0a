package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/phsym/console-slog"
)

// Format selects how SlogLogger renders records.
type Format string

const (
	// FormatJSON renders one JSON object per record, with the time under "ts".
	FormatJSON Format = "json"
	// FormatText renders logfmt style key=value records.
	FormatText Format = "text"
	// FormatConsole renders colored, human oriented records for terminals.
	FormatConsole Format = "console"
)

// ParseFormat converts a format name to a Format. The empty name is FormatJSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatText, FormatConsole:
		return f, nil
	default:
		return "", fmt.Errorf("logger: unknown format %q", name)
	}
}

// SlogOptions configures NewSlogWithOptions.
type SlogOptions struct {
	Level     Level
	Format    Format
	AddSource bool
}

// SlogLogger is a Logger backed by log/slog.
type SlogLogger struct {
	mu     *sync.Mutex
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlog creates a slog based logger writing to stdout.
//
// When the ENV environment variable is "development", records are rendered
// by the console handler; otherwise they are JSON encoded.
func NewSlog(level Level, addSource bool) Logger {
	return NewSlogWithWriter(os.Stdout, level, addSource)
}

// NewSlogWithWriter creates a slog based logger writing to w, choosing the
// format from the ENV environment variable like NewSlog.
func NewSlogWithWriter(w io.Writer, level Level, addSource bool) Logger {
	format := FormatJSON
	if os.Getenv("ENV") == "development" {
		format = FormatConsole
	}

	return NewSlogWithOptions(w, SlogOptions{Level: level, Format: format, AddSource: addSource})
}

// NewSlogWithOptions creates a slog based logger writing to w in the given format.
// An unknown format falls back to FormatJSON.
func NewSlogWithOptions(w io.Writer, opts SlogOptions) Logger {
	inst := &SlogLogger{
		mu:    &sync.Mutex{},
		level: &slog.LevelVar{},
	}
	inst.level.Set(toSlogLevel(opts.Level))

	renameTime := func(_ []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			a.Key = "ts"
		}
		return a
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatConsole:
		handler = console.NewHandler(w, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     inst.level,
		})
	case FormatText:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource:   opts.AddSource,
			Level:       inst.level,
			ReplaceAttr: renameTime,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   opts.AddSource,
			Level:       inst.level,
			ReplaceAttr: renameTime,
		})
	}
	inst.logger = slog.New(handler)

	return inst
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (l *SlogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
	os.Exit(1)
}

// With returns a child logger sharing the level of its parent, so a device
// logger follows later SetLevel calls on the daemon logger.
func (l *SlogLogger) With(keyValues ...any) Logger {
	return &SlogLogger{
		mu:     l.mu,
		logger: l.logger.With(keyValues...),
		level:  l.level,
	}
}

func (l *SlogLogger) Level() Level {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return DebugLevel
	case lv <= slog.LevelInfo:
		return InfoLevel
	case lv <= slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (l *SlogLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level.Set(toSlogLevel(level))
}

// log must be called directly by an exported logging method, because it
// skips a fixed number of frames to report the caller's source position.
func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, log, exported method]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
