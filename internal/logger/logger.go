package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ComponentKey is the field every component logger carries. Nested
// components are joined with dots, e.g. "http.handlers".
const ComponentKey = "component"

// Logger is the structured logger shared by every component.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})

	// Named returns a child logger whose component field is the parent's
	// component extended by name.
	Named(name string) Logger

	// With returns a child logger that adds fields to every entry.
	With(fields ...zap.Field) Logger

	Sync() error
}

type loggerImpl struct {
	// root has the caller fields but no component; base adds the component.
	root      *zap.Logger
	base      *zap.Logger
	component string
}

// New builds a zap logger writing to stderr. pretty selects the colored
// console encoder, otherwise JSON is written.
func New(level string, pretty bool) (Logger, error) {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}

	if lvl := parseLevel(level); lvl != nil {
		cfg.Level = zap.NewAtomicLevelAt(*lvl)
	}

	base, err := cfg.Build(
		zap.AddStacktrace(zapcore.FatalLevel),
		zap.Fields(zap.String("app", "typecore")),
	)
	if err != nil {
		return nil, err
	}
	return FromZap(base), nil
}

// FromZap wraps an existing zap logger.
func FromZap(base *zap.Logger) Logger {
	return &loggerImpl{root: base, base: base}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return FromZap(zap.NewNop())
}

func parseLevel(lvl string) *zapcore.Level {
	switch lvl {
	case "debug":
		l := zapcore.DebugLevel
		return &l
	case "info":
		l := zapcore.InfoLevel
		return &l
	case "warn":
		l := zapcore.WarnLevel
		return &l
	case "error":
		l := zapcore.ErrorLevel
		return &l
	default:
		return nil
	}
}

// ValidLevel reports whether lvl names a level New understands.
func ValidLevel(lvl string) bool {
	return parseLevel(lvl) != nil
}

func (l *loggerImpl) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }
func (l *loggerImpl) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *loggerImpl) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *loggerImpl) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }

func (l *loggerImpl) Debugf(t string, args ...interface{}) { l.base.Sugar().Debugf(t, args...) }
func (l *loggerImpl) Infof(t string, args ...interface{})  { l.base.Sugar().Infof(t, args...) }

func (l *loggerImpl) Named(name string) Logger {
	component := name
	if l.component != "" {
		component = l.component + "." + name
	}
	return &loggerImpl{
		root:      l.root,
		base:      l.root.With(zap.String(ComponentKey, component)),
		component: component,
	}
}

func (l *loggerImpl) With(fields ...zap.Field) Logger {
	return &loggerImpl{
		root:      l.root.With(fields...),
		base:      l.base.With(fields...),
		component: l.component,
	}
}

func (l *loggerImpl) Sync() error { return l.base.Sync() }

// Field constructors, re-exported so callers don't import zap directly.
func String(key, val string) zap.Field                 { return zap.String(key, val) }
func Int(key string, val int) zap.Field                { return zap.Int(key, val) }
func Bool(key string, val bool) zap.Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
func Error(err error) zap.Field                        { return zap.Error(err) }

// Catalog fields used across components.
func Identity(id string) zap.Field    { return zap.String("identity", id) }
func Family(family string) zap.Field  { return zap.String("family", family) }
func Path(path string) zap.Field      { return zap.String("path", path) }
func Directory(name string) zap.Field { return zap.String("directory", name) }
