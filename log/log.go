// Copyright 2026 The chainhook-observer Authors
// This file is part of the chainhook-observer library.
//
// The chainhook-observer library is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The chainhook-observer library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the chainhook-observer library. If not, see
// <http://www.gnu.org/licenses/>.

// Package log provides the module-scoped structured logger used across
// every package of the observer, mirroring the NewModuleLogger convention
// used throughout this codebase's call sites.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Module identifies the subsystem emitting a log line. Operators can raise
// or lower verbosity per module without touching the global level.
type Module string

const (
	Common     Module = "common"
	BlockPool  Module = "blockpool"
	Microblock Module = "microblock"
	Indexer    Module = "indexer"
	Predicate  Module = "predicate"
	Dispatcher Module = "dispatcher"
	Occurrence Module = "occurrence"
	Observer   Module = "observer"
	API        Module = "api"
	Config     Module = "config"
	CMD        Module = "cmd"
)

// Lvl is a logging severity level, ordered from least to most verbose.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface every module-level `logger` variable satisfies.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	// Crit logs at LvlCrit and terminates the process. Reserved for startup
	// configuration failures (spec §7); never call it from request-serving
	// code paths.
	Crit(msg string, ctx ...interface{})
}

var (
	mu          sync.Mutex
	out         io.Writer = defaultWriter()
	globalLevel           = LvlInfo
	moduleLevel           = map[Module]Lvl{}
	exitFn                = os.Exit
)

func defaultWriter() io.Writer {
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return colorable.NewColorableStderr()
	}
	return os.Stderr
}

// SetOutput redirects all log output; used by embedders and tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the global minimum severity level.
func SetLevel(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = l
}

// SetModuleLevel overrides the minimum severity for a single module.
func SetModuleLevel(m Module, l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	moduleLevel[m] = l
}

type moduleLogger struct {
	module Module
}

// NewModuleLogger returns a Logger scoped to the given module.
func NewModuleLogger(m Module) Logger {
	return &moduleLogger{module: m}
}

func (l *moduleLogger) level() Lvl {
	mu.Lock()
	defer mu.Unlock()
	if lvl, ok := moduleLevel[l.module]; ok {
		return lvl
	}
	return globalLevel
}

func (l *moduleLogger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *moduleLogger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *moduleLogger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *moduleLogger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *moduleLogger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }

func (l *moduleLogger) Crit(msg string, ctx ...interface{}) {
	l.write(LvlCrit, msg, ctx)
	exitFn(1)
}

func (l *moduleLogger) write(lvl Lvl, msg string, ctx []interface{}) {
	if lvl > l.level() {
		return
	}
	mu.Lock()
	defer mu.Unlock()

	line := fmt.Sprintf("%s [%s] %-5s %s", time.Now().UTC().Format(time.RFC3339Nano), l.module, lvl, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		line += fmt.Sprintf(" %v=%v", ctx[i], ctx[i+1])
	}
	if lvl == LvlCrit {
		line += fmt.Sprintf(" stack=%v", stack.Trace().TrimRuntime())
	}
	fmt.Fprintln(out, line)
}
