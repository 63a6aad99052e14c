package dashboard

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatCompact formats a large quantity with B/M/K suffixes.
func FormatCompact(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatPrice formats a price as $X.XX, or "-" for zero/NaN.
func FormatPrice(p float64) string {
	if p == 0 || math.IsNaN(p) || p == math.MaxFloat64 {
		return "-"
	}
	return fmt.Sprintf("$%.2f", p)
}

// FormatChange formats a signed absolute change: "+1.50" or "-1.50".
// Zero counts as non-negative.
func FormatChange(c float64) string {
	if c >= 0 {
		return fmt.Sprintf("+%.2f", c)
	}
	return fmt.Sprintf("%.2f", c)
}

// FormatPct formats a percentage already expressed in percent units:
// "+1.25%" or "-0.40%".
func FormatPct(p float64) string {
	return FormatChange(p) + "%"
}

// FormatROI formats a return on investment. Non-negative values carry a
// "+"; negative values carry only their minus sign.
func FormatROI(roi float64) string {
	if roi >= 0 {
		return fmt.Sprintf("+%.2f%%", roi)
	}
	return fmt.Sprintf("%.2f%%", roi)
}
