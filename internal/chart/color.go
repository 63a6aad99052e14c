package chart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var namedColors = map[string]string{
	"white":  "#ffffff",
	"black":  "#000000",
	"red":    "#ff1744",
	"green":  "#00c853",
	"yellow": "#ffeb3b",
	"orange": "#ff9800",
	"cyan":   "#00bcd4",
	"gray":   "#9e9e9e",
	"grey":   "#9e9e9e",
}

// TermColor converts a CSS colour (#rgb, #rrggbb, rgb(), rgba(), a few
// names) to a terminal colour. Alpha is dropped. Unknown values give "".
func TermColor(css string) lipgloss.TerminalColor {
	if hex := cssHex(css); hex != "" {
		return lipgloss.Color(hex)
	}
	return lipgloss.NoColor{}
}

func cssHex(css string) string {
	s := strings.ToLower(strings.TrimSpace(css))
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "#") && len(s) == 7:
		return s
	case strings.HasPrefix(s, "#") && len(s) == 4:
		return "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	case strings.HasPrefix(s, "rgb"):
		open, end := strings.IndexByte(s, '('), strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return ""
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return ""
		}
		var rgb [3]int
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil || v < 0 || v > 255 {
				return ""
			}
			rgb[i] = v
		}
		return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
	}
	return namedColors[s]
}
