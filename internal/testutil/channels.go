// Package testutil provides shared test utilities for drivesync packages.
// These helpers reduce duplication across test files and ensure consistent test patterns.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// DefaultTestTimeout is the standard timeout for async test operations.
const DefaultTestTimeout = 5 * time.Second

// WaitForChannel waits for a signal on the channel or fails after timeout.
// Use this for waiting on done channels, run completion signals, etc.
func WaitForChannel(t *testing.T, ch <-chan struct{}, timeout time.Duration, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		require.Fail(t, msg)
	}
}
