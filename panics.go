package dispatch

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/goliatone/go-errors"
)

// panicError converts a recovered panic from a worker goroutine into an
// error carrying the command name and a cleaned stack trace, so it can be
// routed through the unit's error handler instead of killing the process.
func panicError(name string, rec any) *errors.Error {
	stack := make([]byte, 8096)
	n := runtime.Stack(stack, false)
	cleaned := cleanStackTrace(stack[:n])

	return errors.New(fmt.Sprintf("recovered from panic: %v", rec), errors.CategoryHandler).
		WithTextCode(ErrCodeActionPanic).
		WithMetadata(map[string]any{
			"command": name,
			"stack":   string(cleaned),
		})
}

func cleanStackTrace(stack []byte) []byte {
	lines := strings.Split(string(stack), "\n")

	// we find the index after the panic line
	panicLineIndex := -1
	for i, line := range lines {
		if strings.Contains(line, "panic(") {
			panicLineIndex = i
			break
		}
	}

	// then remove everything before it
	if panicLineIndex >= 0 && panicLineIndex+2 < len(lines) {
		// remove the panic() call line & file reference line
		// panic({0x101fc1100?, 0x14000817248?})
		//         ./go/src/runtime/panic.go:785 +0x124
		lines = lines[panicLineIndex+2:]
	}

	return []byte(strings.Join(lines, "\n"))
}
