package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is a component-scoped leveled logger. Every package in the module
// logs through one of these so output carries a "component" field.
type Logger struct {
	entry *logrus.Entry
}

var (
	root *logrus.Logger
	once sync.Once
)

// Init configures the root logger from environment variables:
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: text or json (default: text)
func Init() {
	once.Do(func() {
		root = logrus.New()
		root.SetOutput(os.Stdout)

		switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
		case "debug":
			root.SetLevel(logrus.DebugLevel)
		case "warn", "warning":
			root.SetLevel(logrus.WarnLevel)
		case "error":
			root.SetLevel(logrus.ErrorLevel)
		default:
			root.SetLevel(logrus.InfoLevel)
		}

		if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
			root.SetFormatter(&logrus.JSONFormatter{})
		} else {
			root.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "15:04:05.000",
			})
		}
	})
}

// SetLevel overrides the root log level.
func SetLevel(level logrus.Level) {
	Init()
	root.SetLevel(level)
}

// WithComponent returns a logger scoped to the given component name.
func WithComponent(name string) *Logger {
	Init()
	return &Logger{entry: root.WithField("component", name)}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// WithField returns a logger carrying an extra structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}
