package build

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestLogTypeString checks the human readable names of the log types.
func TestLogTypeString(t *testing.T) {
	require.Equal(t, "none", LogTypeNone.String())
	require.Equal(t, "stdout", LogTypeStdOut.String())
	require.Equal(t, "default", LogTypeDefault.String())
	require.Equal(t, "unknown", LogType(42).String())

	require.Equal(t, "development", Development.String())
	require.Equal(t, "production", Production.String())
}

// TestNewSubLoggerUsesConstructor ensures that a supplied constructor is
// honored by the default build configuration.
func TestNewSubLoggerUsesConstructor(t *testing.T) {
	if LoggingType != LogTypeDefault {
		t.Skipf("logging type is %v", LoggingType)
	}

	var gotSubsystem string
	logger := NewSubLogger("TEST", func(s string) btclog.Logger {
		gotSubsystem = s
		return btclog.Disabled
	})
	require.Equal(t, "TEST", gotSubsystem)
	require.Equal(t, btclog.Disabled, logger)

	// Without a constructor the logger stays disabled.
	require.Equal(t, btclog.Disabled, NewSubLogger("TEST", nil))
}

// TestSubLoggerSource checks which logger source every build combination
// selects.
func TestSubLoggerSource(t *testing.T) {
	tests := []struct {
		deployment DeploymentType
		logType    LogType
		want       logSource
	}{
		{Production, LogTypeDefault, sourceConstructor},
		{Production, LogTypeStdOut, sourceConstructor},
		{Production, LogTypeNone, sourceConstructor},
		{Development, LogTypeDefault, sourceConstructor},
		{Development, LogTypeStdOut, sourceStdOut},
		{Development, LogTypeNone, sourceDisabled},
	}

	for _, test := range tests {
		got := subLoggerSource(test.deployment, test.logType)
		require.Equal(t, test.want, got, "%v/%v", test.deployment,
			test.logType)
	}
}

// TestNewStdOutLogger ensures stdout loggers honor the build tag level.
func TestNewStdOutLogger(t *testing.T) {
	want, _ := btclog.LevelFromString(LogLevel)
	require.Equal(t, want, newStdOutLogger("TEST").Level())
}
