package logger

import (
	"io"
	"os"
	"strings"

	"github.com/raghavkhare98/documind/backend/go/internal/models"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry with the structured fields used by the indexer.
// The With* methods return a derived Logger and leave the receiver untouched,
// so one base Logger can be shared by concurrent workers.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus instance.
// level: minimum level to emit. out: destination, stderr when nil.
func Init(level logrus.Level, out io.Writer) {
	// JSON with fixed key names keeps the lines parseable by log collectors.
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)
	logrus.SetLevel(level)
}

// ParseLevel maps a config level string onto a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// New creates a Logger tagged with the service name and run id.
func New(serviceName, runID string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
			"run_id":       runID,
		}),
	}
}

// NewWithEntry wraps an existing entry, mainly so tests can capture output.
func NewWithEntry(entry *logrus.Entry) *Logger {
	return &Logger{entry: entry}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(l)}
}

// WithDocument attaches the document being processed.
func (l *Logger) WithDocument(doc models.DocumentInfo) *Logger {
	return &Logger{entry: l.entry.WithField("document", doc)}
}

// WithError attaches a classified error.
func (l *Logger) WithError(err models.ErrorInfo) *Logger {
	return &Logger{entry: l.entry.WithField("error", err)}
}

// WithPayload attaches arbitrary structured data.
func (l *Logger) WithPayload(payload map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithField("payload", payload)}
}

// WithField attaches a single key.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// Info logs at info level.
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn logs at warn level.
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error logs at error level.
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug logs at debug level.
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
