package common

import (
	"runtime"
)

// GetStackTrace returns the stack trace of the calling goroutine.
// Used by panic recovery handlers in workers and HTTP middleware.
func GetStackTrace() string {
	buf := make([]byte, 64*1024)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
