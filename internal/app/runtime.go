package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "STOCKROOM_TEST_MODE"

// testMode caches the parsed flag; nil means not read yet.
var testMode atomic.Pointer[bool]

// InTestMode reports whether the binaries should skip runtime startup, so
// test harnesses can exec them without side effects.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	enabled := os.Getenv(testModeEnv) == "1"
	testMode.Store(&enabled)
	return enabled
}

// RefreshTestMode re-reads the environment, for tests that flip the flag.
func RefreshTestMode() {
	enabled := os.Getenv(testModeEnv) == "1"
	testMode.Store(&enabled)
}
