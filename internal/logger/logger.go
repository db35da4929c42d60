// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// ROLÊ writes scheduler sweeps, autosave failures, and request errors as
// JSON, one file per day under `<root>/logs/YYYY-MM-DD.log`.  Lumberjack
// rotates, compresses, and prunes the files with the limits from the `log`
// config section.  An interactive TTY also gets a console copy.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{
//		Root:  cfg.Paths.Root,
//		Level: cfg.Log.Level,
//		Tee:   logger.RunningInTTY(),
//	})
//	log.Infow("scheduler tick", "published", n)
//
// Request-scoped loggers travel in context.Context via WithContext and
// FromContext.  requestinfo tags them once per request.
//
// Notes
// -----
// • ISO-8601 timestamps, lowercase levels, short callers.
// • Internal zap errors go to the same file sink.
package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.  Zero values fall back to info level and the
// rotation defaults below.
type Options struct {
	Root       string
	Level      string
	Tee        bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Now        func() time.Time
}

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 7
	defaultMaxAgeDays = 14
)

// FileName is the log file for day t.
func FileName(t time.Time) string { return t.Format("2006-01-02") + ".log" }

// New builds the process logger, installs it with zap.ReplaceGlobals, and
// logs "logger online".
func New(o Options) (*zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if o.Level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(o.Level); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	dir := filepath.Join(o.Root, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName(o.Now())),
		MaxSize:    orDefault(o.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(o.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(o.MaxAgeDays, defaultMaxAgeDays),
		Compress:   true,
	})

	enc := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		NameKey:      "logger",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
		EncodeName:   zapcore.FullNameEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, lvl)
	if o.Tee {
		core = zapcore.NewTee(core,
			zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), lvl))
	}

	l := zap.New(core, zap.AddCaller(), zap.ErrorOutput(sink))
	zap.ReplaceGlobals(l)

	s := l.Sugar()
	s.Infow("logger online", "level", lvl.String(), "tee", o.Tee)
	return s, nil
}

func orDefault(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

// RunningInTTY reports whether stdout is a character device.
func RunningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored by WithContext, or zap.L().
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}
