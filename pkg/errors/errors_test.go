package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseInErrorString(t *testing.T) {
	cause := errors.New("disk full")
	err := ConfigError("read", "failed to read config file").Wrap(cause)

	require.Contains(t, err.Error(), "disk full")
	require.Contains(t, err.Error(), "CONFIG_INVALID")
	require.Equal(t, cause, err.Cause)
}

func TestNewCriticalSetsCriticalSeverity(t *testing.T) {
	err := NewCritical(CodeEngineStartupFailed, "engine", "start", "panic during boot")
	require.True(t, err.IsCritical())
	require.False(t, err.IsRecoverable())
}

func TestWithMetadataAccumulates(t *testing.T) {
	err := New(CodeJournalRotationFailed, "journal", "rotate", "bad batch")
	err.WithMetadata("file", "0001.json").WithMetadata("offset", 42)

	require.Equal(t, "0001.json", err.Metadata["file"])
	require.Equal(t, 42, err.Metadata["offset"])
}

func TestAsAppErrorRoundTrips(t *testing.T) {
	var err error = TransportError("dial", "connection refused")
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	require.Equal(t, CodeTransportUnavailable, appErr.Code)
}

func TestPairingErrorIsCriticalAndUnrecoverable(t *testing.T) {
	err := PairingError("validate", "too many attempts")
	require.True(t, err.IsCritical())
	require.False(t, err.IsRecoverable())
	require.Equal(t, CodePairingUnauthorized, err.Code)
}

func TestWrapErrorLeavesExistingAppErrorUnchanged(t *testing.T) {
	original := PairingError("pair", "too many attempts")
	wrapped := WrapError(original, "other", "op", "ignored message")
	require.Same(t, original, wrapped)
}
