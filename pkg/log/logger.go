// Copyright 2021-2024 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log is the leveled logger shared by the table generators.
package log

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level selects which messages reach the DefaultLogger.
type Level int

// Levels, from the most to the least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel converts a level name ("debug", "info", "warn", "error") into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "verbose":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger describes a logger to be used in rvacpi.
type Logger interface {
	// Debugf logs a verbose diagnostic message.
	Debugf(format string, args ...interface{})

	// Infof logs an informational message.
	Infof(format string, args ...interface{})

	// Warnf logs an warning message.
	Warnf(format string, args ...interface{})

	// Errorf logs an error message.
	Errorf(format string, args ...interface{})

	// Fatalf logs a fatal message and immediately exits the application
	// with os.Exit.
	Fatalf(format string, args ...interface{})
}

// DefaultLogger is the logger used by default everywhere within rvacpi.
var DefaultLogger Logger

// DefaultLevel is the minimal level printed by the DefaultLogger created in init.
var DefaultLevel = LevelInfo

func init() {
	DefaultLogger = logWrapper{Logger: log.New(os.Stderr, "", log.LstdFlags), level: &DefaultLevel}
}

// New returns a Logger writing through l and filtering by *level.
func New(l *log.Logger, level *Level) Logger {
	return logWrapper{Logger: l, level: level}
}

type logWrapper struct {
	Logger *log.Logger
	level  *Level
}

func (logger logWrapper) printf(lvl Level, format string, args ...interface{}) {
	if logger.level != nil && lvl < *logger.level {
		return
	}
	logger.Logger.Printf("[rvacpi]["+lvl.String()+"] "+format, args...)
}

// Debugf implements Logger.
func (logger logWrapper) Debugf(format string, args ...interface{}) {
	logger.printf(LevelDebug, format, args...)
}

// Infof implements Logger.
func (logger logWrapper) Infof(format string, args ...interface{}) {
	logger.printf(LevelInfo, format, args...)
}

// Warnf implements Logger.
func (logger logWrapper) Warnf(format string, args ...interface{}) {
	logger.printf(LevelWarn, format, args...)
}

// Errorf implements Logger.
func (logger logWrapper) Errorf(format string, args ...interface{}) {
	logger.printf(LevelError, format, args...)
}

// Fatalf implements Logger.
func (logger logWrapper) Fatalf(format string, args ...interface{}) {
	logger.Logger.Fatalf("[rvacpi][FATAL] "+format, args...)
}

// Debugf logs a verbose diagnostic message.
func Debugf(format string, args ...interface{}) {
	DefaultLogger.Debugf(format, args...)
}

// Infof logs an informational message.
func Infof(format string, args ...interface{}) {
	DefaultLogger.Infof(format, args...)
}

// Warnf logs an warning message.
func Warnf(format string, args ...interface{}) {
	DefaultLogger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	DefaultLogger.Errorf(format, args...)
}

// Fatalf logs a fatal message and immediately exits the application
// with os.Exit (which is expected to be called by the DefaultLogger.Fatalf).
func Fatalf(format string, args ...interface{}) {
	DefaultLogger.Fatalf(format, args...)
}
