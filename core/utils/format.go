package utils

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss. NaN, infinities and negative values
// render as 0:00, which is what the UI shows before metadata resolves.
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	mins := int(seconds / 60)
	secs := int(math.Mod(seconds, 60))
	return fmt.Sprintf("%d:%02d", mins, secs)
}
