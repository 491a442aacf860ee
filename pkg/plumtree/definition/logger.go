// Package definition holds the small ambient pieces a Node accepts
// from its embedder that aren't part of the Plumtree wire protocol
// itself — currently, just the logger.
package definition

import (
	"fmt"
	"log"
	"os"
)

const (
	calldepth = 3
	info      = "INFO"
	warn      = "WARN"
	errorl    = "ERROR"
	debug     = "DEBUG"
)

// Logger is the diagnostic sink a Node uses to trace protocol events:
// unknown-sender rejections, wasted eager-parent detection, and
// no-eager-peers healing. It never participates in the state
// machine's control flow (spec §7 — the core is infallible).
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

func level(prefix, message string) string {
	return fmt.Sprintf("[%s]: %s", prefix, message)
}

// DefaultLogger is the Logger implementation used when an embedder
// doesn't provide its own.
type DefaultLogger struct {
	*log.Logger
	debug bool
}

// NewDefaultLogger returns a DefaultLogger writing to stderr with
// debug-level traces disabled.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{
		Logger: log.New(os.Stderr, "plumtree ", log.LstdFlags),
		debug:  false,
	}
}

func (l *DefaultLogger) Info(v ...interface{}) {
	_ = l.Output(calldepth, level(info, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(info, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Warn(v ...interface{}) {
	_ = l.Output(calldepth, level(warn, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(warn, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Error(v ...interface{}) {
	_ = l.Output(calldepth, level(errorl, fmt.Sprint(v...)))
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	_ = l.Output(calldepth, level(errorl, fmt.Sprintf(format, v...)))
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	if l.debug {
		_ = l.Output(calldepth, level(debug, fmt.Sprint(v...)))
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.debug {
		_ = l.Output(calldepth, level(debug, fmt.Sprintf(format, v...)))
	}
}

// ToggleDebug enables or disables Debug/Debugf output, returning the
// new state.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	return l.debug
}

// NopLogger discards everything. Useful for tests and benchmarks that
// don't want log noise.
type NopLogger struct{}

func (NopLogger) Info(v ...interface{})                  {}
func (NopLogger) Infof(format string, v ...interface{})  {}
func (NopLogger) Warn(v ...interface{})                  {}
func (NopLogger) Warnf(format string, v ...interface{})  {}
func (NopLogger) Error(v ...interface{})                 {}
func (NopLogger) Errorf(format string, v ...interface{}) {}
func (NopLogger) Debug(v ...interface{})                 {}
func (NopLogger) Debugf(format string, v ...interface{}) {}
func (NopLogger) ToggleDebug(value bool) bool            { return value }
