// Package logger provides the structured logger used by the pipeline and the web application.
package logger

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const redacted = "[REDACTED]"

// Logger wraps a sugared zap logger with key/value helpers.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for mode "dev" (console, debug level) or "prod" (JSON, info level).
func New(mode string) (log *Logger, err error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	var zapLogger *zap.Logger
	zapLogger, err = cfg.Build()
	if err != nil {
		err = errors.Wrap(err, "failed to build logger")
		return log, err
	}

	log = &Logger{SugaredLogger: zapLogger.Sugar()}
	return log, err
}

// Nop returns a logger that discards everything.
func Nop() (log *Logger) {
	log = &Logger{SugaredLogger: zap.NewNop().Sugar()}
	return log
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitize(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitize(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitize(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitize(keysAndValues)...)
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(keysAndValues ...interface{}) (child *Logger) {
	child = &Logger{SugaredLogger: l.SugaredLogger.With(sanitize(keysAndValues)...)}
	return child
}

// sanitize masks values whose key names a credential.
func sanitize(kv []interface{}) (out []interface{}) {
	out = make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}

		key, _ := kv[i].(string)
		if secretKey(key) {
			out = append(out, kv[i], redacted)
			continue
		}
		out = append(out, kv[i], kv[i+1])
	}
	return out
}

func secretKey(key string) (secret bool) {
	key = strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret", "api_key", "apikey", "authorization"} {
		if strings.Contains(key, marker) {
			secret = true
			return secret
		}
	}
	return secret
}
