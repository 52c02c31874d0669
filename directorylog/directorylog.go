// Package directorylog is the ambient logging collaborator shared by every
// other package in this module: a level-filtered wrapper over the standard
// log.Logger, with per-operation trace tokens so a single RPC or periodic
// task run can be followed across log lines.
package directorylog

import (
	"fmt"
	"log"
	"math/rand"
	"os"
)

// Level is a logging verbosity threshold.
type Level int

const (
	// LevelNone logs nothing.
	LevelNone Level = iota
	// LevelError logs situations that are not expected to happen and are
	// difficult to handle otherwise.
	LevelError
	// LevelWarn logs non-critical situations that might happen but
	// shouldn't, e.g. a duplicate registration.
	LevelWarn
	// LevelInfo logs situations that are expected but important for
	// operation: registrations, lookups, task transitions.
	LevelInfo
	// LevelDebug logs everything, including per-iteration scheduling detail.
	LevelDebug
)

var levelTags = [...]string{"[NON]", "[ERR]", "[WRN]", "[INF]", "[DBG]"}

func (l Level) String() string {
	if l < LevelNone || l > LevelDebug {
		return "[???]"
	}
	return levelTags[l]
}

// A Logger wraps a standard library *log.Logger with a level filter. The
// zero value logs at LevelWarn to os.Stderr.
type Logger struct {
	std   *log.Logger
	level Level
}

// New returns a Logger writing to os.Stderr at the given level, tagged with
// the given prefix (e.g. "directoryd").
func New(prefix string, level Level) *Logger {
	return &Logger{
		std:   log.New(os.Stderr, prefix+" ", log.LstdFlags|log.Lmicroseconds),
		level: level,
	}
}

// SetLevel changes the verbosity threshold.
func (l *Logger) SetLevel(level Level) { l.level = level }

// Enabled reports whether a message at the given level would be emitted,
// letting callers skip building an expensive log line entirely.
func (l *Logger) Enabled(level Level) bool { return l != nil && level <= l.level }

func (l *Logger) log(level Level, token string, args []interface{}) {
	if !l.Enabled(level) {
		return
	}
	if token != "" {
		l.std.Printf("%s [%s] %s", level, token, fmt.Sprintln(args...))
		return
	}
	l.std.Printf("%s %s", level, fmt.Sprintln(args...))
}

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, "", []interface{}{fmt.Sprintf(format, args...)})
}

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, "", []interface{}{fmt.Sprintf(format, args...)})
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, "", []interface{}{fmt.Sprintf(format, args...)})
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, "", []interface{}{fmt.Sprintf(format, args...)})
}

// WithToken returns a Tokened logger that stamps every line with token, so a
// single RPC or task run can be grepped out of interleaved output.
func (l *Logger) WithToken(token string) Tokened { return Tokened{l: l, token: token} }

// Tokened is a Logger bound to a single trace token.
type Tokened struct {
	l     *Logger
	token string
}

func (t Tokened) Errorf(format string, args ...interface{}) {
	t.l.log(LevelError, t.token, []interface{}{fmt.Sprintf(format, args...)})
}
func (t Tokened) Warnf(format string, args ...interface{}) {
	t.l.log(LevelWarn, t.token, []interface{}{fmt.Sprintf(format, args...)})
}
func (t Tokened) Infof(format string, args ...interface{}) {
	t.l.log(LevelInfo, t.token, []interface{}{fmt.Sprintf(format, args...)})
}
func (t Tokened) Debugf(format string, args ...interface{}) {
	t.l.log(LevelDebug, t.token, []interface{}{fmt.Sprintf(format, args...)})
}

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewToken returns a short random alphanumeric string used to tag a group of
// log lines belonging to one logical operation.
func NewToken() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return string(b)
}
