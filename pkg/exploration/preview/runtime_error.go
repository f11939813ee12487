package preview

import (
	"fmt"
	"strings"
)

// RuntimeError is one browser error reported by the preview iframe.
type RuntimeError struct {
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Source  string `json:"source"`
	Stack   string `json:"stack"`
}

const stackPreviewLines = 3

// Limit keeps the first MaxReportedErrors errors.
func Limit(errs []RuntimeError) []RuntimeError {
	if len(errs) > MaxReportedErrors {
		return errs[:MaxReportedErrors]
	}
	return errs
}

// FormatErrors renders errors for a repair prompt, one "- Line N: message"
// entry each, followed by the first stack lines when present.
func FormatErrors(errs []RuntimeError) string {
	var b strings.Builder
	for _, e := range Limit(errs) {
		line := "?"
		if e.Line > 0 {
			line = fmt.Sprint(e.Line)
		}
		msg := e.Message
		if msg == "" {
			msg = "unknown error"
		}
		fmt.Fprintf(&b, "- Line %s: %s\n", line, msg)
		if e.Stack != "" {
			stack := strings.Split(e.Stack, "\n")
			if len(stack) > stackPreviewLines {
				stack = stack[:stackPreviewLines]
			}
			fmt.Fprintf(&b, "  Stack: %s\n", strings.Join(stack, "\n"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Messages returns the messages of the forwarded errors.
func Messages(errs []RuntimeError) []string {
	limited := Limit(errs)
	out := make([]string, len(limited))
	for i, e := range limited {
		out[i] = e.Message
	}
	return out
}
