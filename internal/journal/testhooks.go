package journal

import "os"

// SetAppendForTests overrides how Writer persists one encoded line.
func SetAppendForTests(fn func(f *os.File, line []byte) error) func() {
	previous := appendLine
	appendLine = fn
	return func() {
		appendLine = previous
	}
}
