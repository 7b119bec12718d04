// Copyright The GridSolve Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides source-tagged leveled logging on top of klog.
// Each subsystem obtains its own named Logger with Get and controls
// debugging for it independently of the global severity level.
package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// Level describes the severity of log messages.
type Level int32

const (
	// LevelDebug is the severity of debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity of informational messages.
	LevelInfo
	// LevelWarn is the severity of warnings.
	LevelWarn
	// LevelError is the severity of errors.
	LevelError
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// debugEnvVar is the environment variable used to seed debugging flags.
	debugEnvVar = "LOGGER_DEBUG"
)

// Logger is the interface for producing log messages for a source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Fatal formats and emits an error message and exits the process.
	Fatal(format string, args ...interface{})
	// Panic formats and emits an error message and panics with the same.
	Panic(format string, args ...interface{})
	// Block emits a multiline message with a per-line prefix.
	Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{})
	// DebugEnabled returns true if debug messages are enabled for the source.
	DebugEnabled() bool
	// Source returns the source name of this Logger.
	Source() string
}

// logging is our logging state, shared by all Loggers.
type logging struct {
	sync.RWMutex
	level    Level
	debug    map[string]bool
	debugAll bool
}

// logger implements Logger.
type logger struct {
	source string
}

var (
	log = &logging{
		level: DefaultLevel,
		debug: make(map[string]bool),
	}
	deflog = logger{source: ""}
)

// Get returns the named Logger.
func Get(source string) Logger {
	return logger{source: source}
}

// Default returns the default Logger.
func Default() Logger {
	return deflog
}

// SetLevel sets the logging severity level.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.level = level
}

// EnableDebug enables debug logging for the given source. It returns the
// previous debugging state of the source. The pseudo-source "*" or "all"
// controls debugging for all otherwise unconfigured sources.
func EnableDebug(source string) bool {
	return setDebug(source, true)
}

// DisableDebug disables debug logging for the given source. It returns the
// previous debugging state of the source.
func DisableDebug(source string) bool {
	return setDebug(source, false)
}

func setDebug(source string, enabled bool) bool {
	log.Lock()
	defer log.Unlock()

	if source == "all" {
		source = "*"
	}
	if source == "*" {
		prev := log.debugAll
		log.debugAll = enabled
		return prev
	}

	prev := log.debug[source]
	log.debug[source] = enabled
	return prev
}

func (l logger) prefix() string {
	if l.source == "" {
		return ""
	}
	return "[" + l.source + "] "
}

func (l logger) Debug(format string, args ...interface{}) {
	if !l.DebugEnabled() {
		return
	}
	klog.InfoDepth(1, "D: "+l.prefix()+fmt.Sprintf(format, args...))
}

func (l logger) Info(format string, args ...interface{}) {
	log.RLock()
	pass := log.level <= LevelInfo
	log.RUnlock()
	if !pass {
		return
	}
	klog.InfoDepth(1, l.prefix()+fmt.Sprintf(format, args...))
}

func (l logger) Warn(format string, args ...interface{}) {
	log.RLock()
	pass := log.level <= LevelWarn
	log.RUnlock()
	if !pass {
		return
	}
	klog.WarningDepth(1, l.prefix()+fmt.Sprintf(format, args...))
}

func (l logger) Error(format string, args ...interface{}) {
	klog.ErrorDepth(1, l.prefix()+fmt.Sprintf(format, args...))
}

func (l logger) Fatal(format string, args ...interface{}) {
	klog.ErrorDepth(1, l.prefix()+fmt.Sprintf(format, args...))
	klog.Flush()
	os.Exit(1)
}

func (l logger) Panic(format string, args ...interface{}) {
	msg := l.prefix() + fmt.Sprintf(format, args...)
	klog.ErrorDepth(1, msg)
	klog.Flush()
	panic(msg)
}

func (l logger) Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{}) {
	for _, line := range strings.Split(fmt.Sprintf(format, args...), "\n") {
		fn("%s%s", prefix, line)
	}
}

func (l logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()

	if enabled, ok := log.debug[l.source]; ok {
		return enabled
	}
	return log.debugAll
}

func (l logger) Source() string {
	if l.source == "" {
		return "<default>"
	}
	return l.source
}

// Seed debugging flags from the environment.
func init() {
	value, ok := os.LookupEnv(debugEnvVar)
	if !ok {
		return
	}
	for _, source := range strings.Split(value, ",") {
		if source = strings.TrimSpace(source); source != "" {
			EnableDebug(source)
		}
	}
}
