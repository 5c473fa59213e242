// Package stringtest builds multi-line string fixtures for tests.
package stringtest

import "strings"

// JoinLF joins multiple strings with LF line endings.
// Use this to construct expected test output with explicit line endings.
//
// Example:
//
//	want := stringtest.JoinLF(
//		"line1",
//		"line2",
//		"line3",
//	) // -> "line1\nline2\nline3"
func JoinLF(ss ...string) string {
	var sb strings.Builder
	for i, s := range ss {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(s)
	}

	return sb.String()
}

// NDJSON joins documents into a newline-delimited JSON payload, one
// document per line with a trailing newline. This is the framing the bulk
// API and the CLI's entity input use.
//
// Example:
//
//	input := stringtest.NDJSON(
//		`{"id": "a"}`,
//		`{"id": "b"}`,
//	) // -> "{\"id\": \"a\"}\n{\"id\": \"b\"}\n"
func NDJSON(docs ...string) string {
	if len(docs) == 0 {
		return ""
	}

	return JoinLF(docs...) + "\n"
}
