// Package logging provides structured logging for chunkcast using slog,
// with JSON output for machine consumption and a human-readable text
// logger for the console. File-backed loggers rotate via lumberjack,
// sized from internal/config.Settings.Log.
package logging

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/chunkcast/chunkcast/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	fileLogger    *slog.Logger
	consoleLogger *slog.Logger
	loggerMu      sync.RWMutex

	level    = new(slog.LevelVar)
	initOnce sync.Once
)

// traceLevel sits below slog.LevelDebug, for chunk-by-chunk dispatch
// chatter that's too noisy even for the debug level.
const traceLevel = slog.Level(-8)

var levelLabels = map[slog.Leveler]string{traceLevel: "TRACE"}

// formatAttr truncates float attrs to 2 decimal places (duration/latency
// values carry more precision than is useful in a log line) and prints
// custom levels by name.
func formatAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime:
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	case a.Key == slog.LevelKey:
		lvl, ok := a.Value.Any().(slog.Level)
		if !ok {
			a.Value = slog.StringValue(fmt.Sprintf("%v", a.Value.Any()))
			break
		}
		label, ok := levelLabels[lvl]
		if !ok {
			label = lvl.String()
		}
		a.Value = slog.StringValue(label)
	case a.Value.Kind() == slog.KindFloat64:
		a.Value = slog.Float64Value(math.Trunc(a.Value.Float64()*100) / 100)
	}
	return a
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "trace":
		return traceLevel
	default:
		return slog.LevelInfo
	}
}

// rotatedHandler builds a JSON slog.Handler writing to path through a
// lumberjack.Logger sized from s.Log, defaulting any zero-valued field.
func rotatedHandler(path string, s *config.Settings) (slog.Handler, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log directory %s: %w", dir, err)
	}

	maxSizeMB, maxBackups, maxAgeDays := 100, 3, 28
	if s != nil {
		if s.Log.MaxSizeMB > 0 {
			maxSizeMB = s.Log.MaxSizeMB
		}
		if s.Log.MaxBackups > 0 {
			maxBackups = s.Log.MaxBackups
		}
		if s.Log.MaxAgeDays > 0 {
			maxAgeDays = s.Log.MaxAgeDays
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}

	return slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level, ReplaceAttr: formatAttr}), nil
}

// Init sets the package-level loggers from settings: a lumberjack-rotated
// JSON file under Settings.Log for the durable record, and a text logger
// to stdout for interactive progress. Only the first call takes effect,
// so RunE closures across subcommands can all call it unconditionally.
func Init(s *config.Settings) {
	initOnce.Do(func() {
		lvl := slog.LevelInfo
		logPath := "logs/chunkcast.log"
		if s != nil {
			lvl = parseLevel(s.Log.Level)
			if s.Log.Path != "" {
				logPath = s.Log.Path
			}
		}
		level.Set(lvl)

		handler, err := rotatedHandler(logPath, s)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level, ReplaceAttr: formatAttr})
		}

		consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level, ReplaceAttr: formatAttr})

		loggerMu.Lock()
		fileLogger = slog.New(handler)
		consoleLogger = slog.New(consoleHandler)
		loggerMu.Unlock()

		slog.SetDefault(fileLogger)
	})
}

// Service returns the shared file logger with a "service" attribute
// attached, for a subsystem (the Dispatcher's HTTP client) that wants
// its log lines attributable without opening a
// second log file of its own. Returns nil before Init.
func Service(name string) *slog.Logger {
	loggerMu.RLock()
	l := fileLogger
	loggerMu.RUnlock()
	if l == nil {
		return nil
	}
	return l.With("service", name)
}

// Console returns the interactive text logger written to stdout, for
// progress a human running transcribe/batch from a terminal should see
// regardless of the configured file log level. Returns nil before Init.
func Console() *slog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return consoleLogger
}

func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }
