// Package logr constructs the daemon's logger: a logr facade over a slog
// handler.
package logr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

const (
	DefaultFormat Format = "default"
	TextFormat    Format = "text"
	JSONFormat    Format = "json"
)

type (
	Config struct {
		Verbosity int
		Format    string
	}

	Format string
)

// LoadConfigFromFlags adds flags to the given flagset, and, after the
// flagset is parsed by the caller, the flags populate the returned logger
// config.
func LoadConfigFromFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.IntVarP(&cfg.Verbosity, "v", "v", 0, "Logging level")
	flags.StringVar(&cfg.Format, "log-format", string(DefaultFormat), "Logging format: text or json")
}

// New constructs a logger writing to stdout.
func New(cfg Config) (logr.Logger, error) {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter constructs a logger writing to w. The default format
// defers to the slog default handler and ignores w.
func NewWithWriter(cfg Config, w io.Writer) (logr.Logger, error) {
	var h slog.Handler
	level := toSlogLevel(cfg.Verbosity)

	switch Format(cfg.Format) {
	case DefaultFormat, "":
		h = &levelHandler{level: level, Handler: slog.Default().Handler()}
	case TextFormat:
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case JSONFormat:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return logr.Logger{}, fmt.Errorf("unrecognised logging format: %s", cfg.Format)
	}
	return logr.New(&sink{handler: h}), nil
}

func Discard() logr.Logger { return logr.Discard() }

// toSlogLevel converts a logr v-level to a slog level: V(0) is info, V(1)
// is debug, and each further level is one below debug.
func toSlogLevel(verbosity int) slog.Level {
	if verbosity <= 0 {
		return slog.LevelInfo
	}
	return slog.Level(-4 - (verbosity - 1))
}

// sink is a logr sink that emits slog records.
type sink struct {
	handler slog.Handler
}

func (s *sink) Init(logr.RuntimeInfo) {}

func (s *sink) Enabled(level int) bool {
	return s.handler.Enabled(context.Background(), toSlogLevel(level))
}

func (s *sink) Info(level int, msg string, keysAndValues ...any) {
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, 0)
	r.Add(keysAndValues...)
	_ = s.handler.Handle(context.Background(), r)
}

func (s *sink) Error(err error, msg string, keysAndValues ...any) {
	r := slog.NewRecord(time.Now(), slog.LevelError, msg, 0)
	if err != nil {
		r.AddAttrs(slog.Any("error", err))
	}
	r.Add(keysAndValues...)
	_ = s.handler.Handle(context.Background(), r)
}

func (s *sink) WithValues(keysAndValues ...any) logr.LogSink {
	return &sink{handler: s.handler.WithAttrs(toAttrs(keysAndValues))}
}

func (s *sink) WithName(name string) logr.LogSink {
	return &sink{handler: s.handler.WithAttrs([]slog.Attr{slog.String("logger", name)})}
}

func toAttrs(keysAndValues []any) []slog.Attr {
	r := slog.NewRecord(time.Time{}, 0, "", 0)
	r.Add(keysAndValues...)
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

// levelHandler wraps a handler, discarding records below a minimum level.
type levelHandler struct {
	level slog.Leveler
	slog.Handler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, Handler: h.Handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, Handler: h.Handler.WithGroup(name)}
}
