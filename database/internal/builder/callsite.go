package builder

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const packagePath = "github.com/gaborage/qdb/database/internal/builder."

// callSite returns the file and line of the first caller outside this package.
// Test files of this package count as callers.
func callSite() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !internalFrame(frame) {
			return shortFile(frame.File), frame.Line
		}
		if !more {
			return "", 0
		}
	}
}

func internalFrame(f runtime.Frame) bool {
	if strings.HasSuffix(f.File, "_test.go") {
		return false
	}
	return strings.HasPrefix(f.Function, packagePath) || strings.HasPrefix(f.Function, "runtime.")
}

// shortFile keeps the last directory and file name, e.g. "reports/monthly.go".
func shortFile(path string) string {
	dir, file := filepath.Split(path)
	return filepath.Join(filepath.Base(dir), file)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
