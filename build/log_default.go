//go:build !stdlog && !nolog
// +build !stdlog,!nolog

package build

// LoggingType is a log type that writes through the sub-logger constructor
// supplied by the owning binary.
const LoggingType = LogTypeDefault
