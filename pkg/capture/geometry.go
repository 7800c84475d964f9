package capture

import (
	"strconv"
	"strings"
)

// DefaultMinSize is the floor for width and height during a resize.
const DefaultMinSize = 20

// parseLength reads the leading integer of a CSS length such as "12px" or
// "-4.5em". Anything without a leading integer yields 0.
func parseLength(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// px formats v as a pixel length, dropping a zero fraction.
func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// sizeOf returns the computed value of prop ("width" or "height"), falling
// back to the layout box when the computed value is not a length.
func sizeOf(el Element, prop string) int {
	v := el.ComputedStyle(prop)
	if n := parseLength(v); n > 0 || strings.HasPrefix(strings.TrimSpace(v), "0") {
		return n
	}
	r := el.Rect()
	if prop == "width" {
		return int(r.Width)
	}
	return int(r.Height)
}

// savedStyle remembers inline values we overwrite so they can be restored.
type savedStyle map[string]string

func save(el Element, props ...string) savedStyle {
	s := make(savedStyle, len(props))
	for _, p := range props {
		s[p] = el.Style(p)
	}
	return s
}

func (s savedStyle) restore(el Element) {
	for p, v := range s {
		el.SetStyle(p, v)
	}
}
