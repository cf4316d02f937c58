// Command phaseprof-demo runs a simulated demand-fetch pipeline under the
// phaseprof profiler, rendering its phases to OpenTelemetry, the Go
// execution tracer or a JSON event dump.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
