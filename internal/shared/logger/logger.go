package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/vendora-inc/vendora/internal/shared/config"
)

var (
	root        *slog.Logger
	rootMu      sync.RWMutex
	atomicLevel = new(slog.LevelVar)
)

// Init configures the process-wide logger. Debug mode adds source locations
// to every record.
func Init(cfg *config.LoggerConfig, debugMode bool) error {
	atomicLevel.Set(ParseLevel(cfg.Level))

	var writer io.Writer
	switch strings.ToLower(cfg.OutputPath) {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		file, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writer = file
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level:     atomicLevel,
			AddSource: debugMode,
		})
	} else {
		handler = tint.NewHandler(writer, &tint.Options{
			Level:       atomicLevel,
			TimeFormat:  time.DateTime,
			AddSource:   debugMode,
			NoColor:     !isTerminal(writer),
			ReplaceAttr: replaceErrorAttr,
		})
	}

	rootMu.Lock()
	root = slog.New(handler)
	slog.SetDefault(root)
	rootMu.Unlock()
	return nil
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceErrorAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" && a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			return tint.Err(err)
		}
	}
	return a
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func SetLevel(level slog.Level) {
	atomicLevel.Set(level)
}

// Get returns the process-wide logger, building a console default on first use.
func Get() *slog.Logger {
	rootMu.RLock()
	l := root
	rootMu.RUnlock()
	if l != nil {
		return l
	}

	rootMu.Lock()
	defer rootMu.Unlock()
	if root == nil {
		root = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:       atomicLevel,
			TimeFormat:  time.DateTime,
			NoColor:     !term.IsTerminal(int(os.Stdout.Fd())),
			ReplaceAttr: replaceErrorAttr,
		}))
		slog.SetDefault(root)
	}
	return root
}

func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}

func WithComponent(component string) Interface {
	return NewLoggerWithSlog(Get().With("component", component))
}
