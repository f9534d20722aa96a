// Package atomicfile writes files atomically, so that a crash mid-write
// never leaves a partly-written file at the destination path.
package atomicfile

import (
	"bytes"
	"io"
	"runtime"
	"strings"

	"github.com/natefinch/atomic"
)

// windowsMaxPath is the classic Windows path length limit beyond which the
// extended-length prefix is required by low-level file APIs.
const windowsMaxPath = 260

const extendedLengthPrefix = `\\?\`

// MaybePrefixLongFilenameOnWindows prefixes the given path with \\?\ on
// Windows when it exceeds the classic path length limit.
func MaybePrefixLongFilenameOnWindows(fname string) string {
	if runtime.GOOS != "windows" || len(fname) < windowsMaxPath {
		return fname
	}

	if strings.HasPrefix(fname, extendedLengthPrefix) {
		return fname
	}

	return extendedLengthPrefix + fname
}

// Write streams r into a temporary file and atomically renames it over
// filename.
func Write(filename string, r io.Reader) error {
	//nolint:wrapcheck
	return atomic.WriteFile(MaybePrefixLongFilenameOnWindows(filename), r)
}

// WriteBytes atomically replaces filename with the given contents.
func WriteBytes(filename string, data []byte) error {
	return Write(filename, bytes.NewReader(data))
}
