/*
Copyright 2019 Intel Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log provides Holpaca's logging interface: per-source named
// loggers backed by logrus.
package log

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, args ...interface{})
	// Infof formats and emits an informational message.
	Infof(format string, args ...interface{})
	// Warnf formats and emits a warning message.
	Warnf(format string, args ...interface{})
	// Errorf formats and emits an error message.
	Errorf(format string, args ...interface{})
	// Fatalf formats and emits an error message and os.Exit()'s with status 1.
	Fatalf(format string, args ...interface{})

	// EnableDebug enables/disables debug messages for this Logger, returning the old state.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool
	// Source returns the source name of this Logger.
	Source() string
}

// logger implements Logger on top of a logrus.Entry scoped to one source.
type logger struct {
	entry *logrus.Entry
	debug *bool
}

var (
	mutex      sync.RWMutex
	root       = logrus.New()
	debugState = make(map[string]bool)
)

func init() {
	root.SetOutput(os.Stderr)
	root.SetLevel(logrus.InfoLevel)
	root.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// NewLogger creates a Logger for the given source name.
func NewLogger(source string) Logger {
	mutex.Lock()
	if _, ok := debugState[source]; !ok {
		debugState[source] = false
	}
	mutex.Unlock()

	return &logger{
		entry: root.WithField("source", source),
	}
}

func (l *logger) source() string {
	if s, ok := l.entry.Data["source"].(string); ok {
		return s
	}
	return ""
}

// Debugf emits at info level if this source has debugging force-enabled,
// otherwise at debug level (suppressed unless the root logger is at debug level).
func (l *logger) Debugf(format string, args ...interface{}) {
	if l.DebugEnabled() {
		l.entry.Infof(format, args...)
	} else {
		l.entry.Debugf(format, args...)
	}
}

func (l *logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

// EnableDebug toggles debug-level messages for this logger's source.
func (l *logger) EnableDebug(state bool) bool {
	mutex.Lock()
	defer mutex.Unlock()

	old := debugState[l.source()]
	debugState[l.source()] = state
	if state {
		root.SetLevel(logrus.DebugLevel)
	}
	return old
}

// DebugEnabled reports whether debug messages are enabled for this logger's source.
func (l *logger) DebugEnabled() bool {
	mutex.RLock()
	defer mutex.RUnlock()
	return debugState[l.source()]
}

// Source returns the source name this logger was created with.
func (l *logger) Source() string {
	return l.source()
}

// SetGlobalDebug enables or disables debug logging for every source.
func SetGlobalDebug(state bool) {
	mutex.Lock()
	defer mutex.Unlock()
	for src := range debugState {
		debugState[src] = state
	}
	if state {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.InfoLevel)
	}
}
