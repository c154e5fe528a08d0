// Package glog is the module-wide structured logger: a zap core behind an
// atomically swappable handle, with an optional rotating file sink.
package glog

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerValue  atomic.Value // *zap.Logger
	sugaredValue atomic.Value // *zap.SugaredLogger
	atomicLevel  zap.AtomicLevel
)

func init() {
	Init(DefaultConfig())
}

// Init rebuilds the global logger from cfg. Safe to call at any time;
// in-flight log calls keep using the previous logger.
func Init(cfg *Config) {
	if cfg == nil {
		return
	}
	atomicLevel = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "M",
		LevelKey:       "L",
		TimeKey:        "T",
		CallerKey:      "C",
		NameKey:        "N",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000Z0700"),
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	cores := make([]zapcore.Core, 0, 2)
	if cfg.Path != "" {
		w := newWriter(cfg.Path, cfg.File)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), atomicLevel))
	}
	if cfg.PrintConsole || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), atomicLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.AddCallerSkip(1),
	)

	loggerValue.Store(logger)
	sugaredValue.Store(logger.Sugar())
}

// Stop flushes buffered log entries.
func Stop() {
	if l := getLogger(); l != nil {
		_ = l.Sync()
	}
}

func SetLogLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

func GetLevel() zapcore.Level {
	return atomicLevel.Level()
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func getLogger() *zap.Logger {
	if v := loggerValue.Load(); v != nil {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return nil
}

func getSugaredLogger() *zap.SugaredLogger {
	if v := sugaredValue.Load(); v != nil {
		if sl, ok := v.(*zap.SugaredLogger); ok {
			return sl
		}
	}
	return nil
}

func Debug(msg string, fields ...zap.Field) {
	if l := getLogger(); l != nil {
		l.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if l := getLogger(); l != nil {
		l.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if l := getLogger(); l != nil {
		l.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if l := getLogger(); l != nil {
		l.Error(msg, fields...)
	}
}

func Debugf(template string, args ...interface{}) {
	if sl := getSugaredLogger(); sl != nil {
		sl.Debugf(template, args...)
	}
}

func Infof(template string, args ...interface{}) {
	if sl := getSugaredLogger(); sl != nil {
		sl.Infof(template, args...)
	}
}

func Warnf(template string, args ...interface{}) {
	if sl := getSugaredLogger(); sl != nil {
		sl.Warnf(template, args...)
	}
}

func Errorf(template string, args ...interface{}) {
	if sl := getSugaredLogger(); sl != nil {
		sl.Errorf(template, args...)
	}
}
