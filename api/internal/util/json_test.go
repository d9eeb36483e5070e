package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONPayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"fenced json", "Here you go:\n```json\n{\"a\":1}\n```\nThanks", `{"a":1}`, true},
		{"fence tag is case insensitive", "```JSON\n{\"a\":1}\n```", `{"a":1}`, true},
		{"bare braces", `blah {"a":1} blah`, `{"a":1}`, true},
		{"plain object", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"untagged fence falls back to braces", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"first fenced block wins", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`, true},
		{"no braces", "I cannot help with that.", "", false},
		{"closing before opening", "} oops {", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONPayload(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tagged fence", "```ts\nconst x = 1;\n```", "const x = 1;"},
		{"untagged fence", "```\nprint('hi')\n```", "print('hi')"},
		{"hyphenated tag", "```objective-c\n@end\n```", "@end"},
		{"surrounding whitespace", "  \n```go\npackage main\n```\n ", "package main"},
		{"no fence", "  const y = 2;  \n", "const y = 2;"},
		{"unterminated fence", "```ts\nconst x = 1;", "```ts\nconst x = 1;"},
		{"empty fence body", "```\n```", "```\n```"},
		{"multi-line body keeps indentation", "```py\ndef f():\n    return 1\n```", "def f():\n    return 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCodeFence(tt.in))
		})
	}
}

func TestCleanCodeFenceIsIdempotent(t *testing.T) {
	for _, in := range []string{"```ts\nconst x = 1;\n```", "plain", "```\n```"} {
		once := CleanCodeFence(in)
		assert.Equal(t, once, CleanCodeFence(once))
	}
}
