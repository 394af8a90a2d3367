package format

import (
	"html"
	"strings"
)

// Escape makes user supplied text safe inside a Telegram HTML message.
func Escape(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b> tags.
func Bold(text string) string {
	return "<b>" + Escape(text) + "</b>"
}

// Lines joins non-empty lines with a newline.
func Lines(lines ...string) string {
	kept := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
