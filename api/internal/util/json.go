package util

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reJSONFence = regexp.MustCompile("(?is)```json\\s*(.+?)\\s*```")
	reCodeFence = regexp.MustCompile("(?s)^```[\\w-]*\\s*(.*?)\\s*```$")
)

// ExtractJSONPayload finds the JSON object inside a model reply. A block
// fenced as ```json wins; otherwise the span from the first '{' to the last
// '}' is taken.
func ExtractJSONPayload(s string) (string, bool) {
	if m := reJSONFence.FindStringSubmatch(s); m != nil && m[1] != "" {
		return strings.TrimSpace(m[1]), true
	}

	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first != -1 && last != -1 && last > first {
		return s[first : last+1], true
	}
	return "", false
}

// CleanCodeFence unwraps text that is entirely one fenced code block,
// optionally tagged with a language. Anything else comes back trimmed.
func CleanCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if m := reCodeFence.FindStringSubmatch(s); m != nil && m[1] != "" {
		return strings.TrimRightFunc(m[1], unicode.IsSpace)
	}
	return s
}
