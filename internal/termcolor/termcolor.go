// Package termcolor decides whether a CLI should emit ANSI color codes,
// and wraps text in them when it should.
package termcolor

import "fmt"

const (
	Red    = "31"
	Green  = "32"
	Yellow = "33"
)

// Wrap returns s wrapped in the given SGR color code if enabled is true,
// and s unchanged otherwise — callers decide "enabled" once via
// Supported(os.Stdout.Fd()) rather than checking per call.
func Wrap(s, code string, enabled bool) string {
	if !enabled {
		return s
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", code, s)
}
