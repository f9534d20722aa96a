// Package units contains helpers to convert sizes to human-readable strings.
package units

import (
	"fmt"
	"strings"
)

//nolint:gochecknoglobals
var unitPrefixes = []string{"", "K", "M", "G", "T"}

func niceNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}

// BytesString formats a byte count as a human-readable base-10 string,
// e.g. "1.5 KB".
func BytesString(b int64) string {
	f := float64(b)
	suffix := "B"

	for _, p := range unitPrefixes {
		if f < 900 { //nolint:mnd
			return fmt.Sprintf("%v %v%v", niceNumber(f), p, suffix)
		}

		f /= 1000
	}

	return fmt.Sprintf("%v T%v", niceNumber(f*1000), suffix) //nolint:mnd
}
