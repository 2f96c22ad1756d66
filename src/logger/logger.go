package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// -----------------------------------------------------------------------------

// Logger provides structured logging for one named component.
type Logger struct {
	name  string
	entry *logrus.Entry
}

// -----------------------------------------------------------------------------

// NewLogger creates a new named Logger instance
func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: logrus.WithField("component", name),
	}
}

// -----------------------------------------------------------------------------

// Setup configures the global log level and output from the config string.
// Unknown level values fall back to info.
func Setup(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		logrus.SetLevel(logrus.DebugLevel)
	case "WARNING", "WARN":
		logrus.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// -----------------------------------------------------------------------------

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs warning messages
func (l *Logger) Warning(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}
