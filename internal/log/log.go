// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log is the ambient logging layer: a single io.Writer fan-out
// to a colorable terminal stream and an optional rotating file, with
// caller-frame annotation via go-stack/stack. It deliberately does not
// reproduce a full log15-derived Handler/Format pipeline — this is a
// smaller, self-contained leveled logger built on the same dependency
// stack.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/jrick/logrotate/rotator"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level orders log severities, least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	case LevelCritical:
		return "CRT"
	default:
		return "OFF"
	}
}

// writer fans every write out to a colorable terminal stream and,
// once InitLogRotator has been called, a rotating log file. Mirrors the
// teacher's logWriter.
type writer struct {
	mu             sync.Mutex
	logRotator     *rotator.Rotator
	colorableWrite io.Writer
}

func (w *writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logRotator != nil {
		w.logRotator.Write(p)
	}
	if w.colorableWrite != nil {
		return w.colorableWrite.Write(p)
	}
	return os.Stderr.Write(p)
}

func (w *writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logRotator != nil {
		w.logRotator.Close()
	}
}

var backend = newWriter()

func newWriter() *writer {
	w := &writer{}
	if isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb" {
		w.colorableWrite = colorable.NewColorableStderr()
	}
	return w
}

// InitLogRotator initializes log rotation to logFile, rolling at maxRolls
// files.
func InitLogRotator(logFile string, maxRolls int) error {
	r, err := rotator.New(logFile, 10*1024, false, maxRolls)
	if err != nil {
		return fmt.Errorf("log: failed to create rotator: %w", err)
	}
	backend.mu.Lock()
	backend.logRotator = r
	backend.mu.Unlock()
	return nil
}

// Logger is a named, leveled logger; each package-level logger in this
// module (blockchain, kvstore, config, ...) owns one, the way the
// teacher's subsystems each declare their own `log` package var.
type Logger struct {
	subsystem string
	level     Level
}

// New returns a Logger tagged with subsystem, defaulting to LevelInfo.
func New(subsystem string) *Logger {
	return &Logger{subsystem: subsystem, level: LevelInfo}
}

// SetLevel adjusts the minimum severity this logger emits.
func (l *Logger) SetLevel(level Level) {
	l.level = level
}

func (l *Logger) log(level Level, depth int, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	caller := ""
	if frames := stack.Trace().TrimBelow(stack.Caller(depth)).TrimRuntime(); len(frames) > 0 {
		caller = fmt.Sprintf("%+v", frames[0])
	}
	fmt.Fprintf(backend, "%s [%s] %s: %s (%s)\n",
		time.Now().UTC().Format("2006-01-02 15:04:05.000"), level, l.subsystem, msg, caller)
}

func (l *Logger) Tracef(format string, args ...interface{})    { l.log(LevelTrace, 3, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.log(LevelDebug, 3, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})     { l.log(LevelInfo, 3, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})     { l.log(LevelWarn, 3, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.log(LevelError, 3, format, args...) }
func (l *Logger) Criticalf(format string, args ...interface{}) { l.log(LevelCritical, 3, format, args...) }
