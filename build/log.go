// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"os"

	"github.com/btcsuite/btclog"
)

// LogType selects, at build time, where package loggers write.
type LogType byte

const (
	// LogTypeNone disables package logging altogether.
	LogTypeNone LogType = iota

	// LogTypeStdOut gives every package its own stdout backend. Unit
	// tests are built with it.
	LogTypeStdOut

	// LogTypeDefault defers to the sub-logger constructor of the binary
	// that owns the log backend.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// logSource is where NewSubLogger takes a logger from.
type logSource byte

const (
	sourceDisabled logSource = iota
	sourceConstructor
	sourceStdOut
)

// subLoggerSource decides the logger source for a deployment and logging
// type. Production binaries always use their own constructor; development
// builds may also log to stdout or not at all.
func subLoggerSource(deployment DeploymentType, logType LogType) logSource {
	switch {
	case deployment == Production:
		return sourceConstructor
	case deployment != Development:
		return sourceDisabled
	case logType == LogTypeDefault:
		return sourceConstructor
	case logType == LogTypeStdOut:
		return sourceStdOut
	default:
		return sourceDisabled
	}
}

// newStdOutLogger returns a logger for subsystem on a private stdout backend,
// at the level chosen by the debug/trace build tags.
func newStdOutLogger(subsystem string) btclog.Logger {
	logger := btclog.NewBackend(os.Stdout).Logger(subsystem)

	level, _ := btclog.LevelFromString(LogLevel)
	logger.SetLevel(level)

	return logger
}

// NewSubLogger returns the logger a package should use for subsystem.
// Packages call it from init with a nil constructor and stay silent until a
// binary hands them a logger through UseLogger.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch subLoggerSource(Deployment, LoggingType) {
	case sourceConstructor:
		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	case sourceStdOut:
		return newStdOutLogger(subsystem)
	}

	return btclog.Disabled
}
