package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv is set by the testing package so binaries can skip network startup.
const TestModeEnv = "SCHOOLDESK_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether the process runs under go test.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode.Store(os.Getenv(TestModeEnv) == "1")
	})
	return testMode.Load()
}
