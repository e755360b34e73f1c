// ABOUTME: Process-wide logrus logger for connect.
// ABOUTME: Writes human-readable logs to stderr; level comes from config or CONNECT_LOG_LEVEL.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// Tests construct packages without going through main, so the logger must
// exist before any caller touches Log.
func init() {
	Init(os.Getenv("CONNECT_LOG_LEVEL"))
}

// Init (re)configures the global logger at the given level. Unknown or empty
// levels fall back to warn so CLI output stays clean.
func Init(level string) {
	logger = New(os.Stderr, level)
	Log = logger.WithField("service", "connect")
}

// New builds a standalone logger writing to out.
func New(out io.Writer, level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false, FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		lvl = logrus.WarnLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard returns an entry that drops everything; handy in tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// TokenPrefix shortens a credential for log output.
func TokenPrefix(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
