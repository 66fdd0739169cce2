// Package debug provides structured, opt-in debug logging shared across
// the daemon's components. Output is disabled unless enabled at build
// time or via the DEBUG environment variable.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// EnableDebug can be set at build time:
// go build -ldflags "-X github.com/nixnav/indexd/internal/debug.EnableDebug=true"
var EnableDebug = "false"

var (
	debugMutex  sync.Mutex
	debugOutput io.Writer = os.Stderr
)

// SetOutput redirects debug output. Passing nil disables it entirely.
func SetOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// IsEnabled reports whether debug output is currently active.
func IsEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Log writes a component-tagged debug line when debug output is enabled.
func Log(component, format string, args ...interface{}) {
	if !IsEnabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

func LogIndex(format string, args ...interface{})   { Log("INDEX", format, args...) }
func LogScan(format string, args ...interface{})    { Log("SCAN", format, args...) }
func LogWatch(format string, args ...interface{})   { Log("WATCH", format, args...) }
func LogPersist(format string, args ...interface{}) { Log("PERSIST", format, args...) }
func LogServer(format string, args ...interface{})  { Log("SERVER", format, args...) }
