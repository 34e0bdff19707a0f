// Package redact masks credential fields in JSON log lines before they are
// written to a sink.
package redact

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "******"

// CredentialFields are the JSON keys that never reach a log sink in clear.
var CredentialFields = []string{
	"password",
	"current_password",
	"new_password",
	"confirm_password",
	"password_hash",
	"access_token",
	"refresh_token",
	"session_token",
	"secret",
	"authorization",
}

// Writer rewrites `"field":"value"` pairs for the configured fields.
type Writer struct {
	w       io.Writer
	pattern *regexp.Regexp
}

// NewWriter wraps w. With no fields it returns a pass-through writer.
func NewWriter(w io.Writer, fields ...string) *Writer {
	if w == nil {
		panic("redact: writer cannot be nil")
	}

	rw := &Writer{w: w}
	if len(fields) == 0 {
		return rw
	}

	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	// (?i) so "Authorization" header dumps are covered as well
	rw.pattern = regexp.MustCompile(fmt.Sprintf(`(?i)("(?:%s)"\s*:\s*)"(?:[^"\\]|\\.)*"`, strings.Join(quoted, "|")))
	return rw
}

// Write reports len(p) on success even when the redacted line is shorter,
// as io.Writer callers compare against the input length.
func (rw *Writer) Write(p []byte) (int, error) {
	if rw.pattern == nil || len(p) == 0 {
		return rw.w.Write(p)
	}

	out := rw.pattern.ReplaceAll(p, []byte(`${1}"`+Mask+`"`))
	if _, err := rw.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// String redacts a single line, for callers that log pre-rendered payloads.
func (rw *Writer) String(s string) string {
	if rw.pattern == nil {
		return s
	}
	return rw.pattern.ReplaceAllString(s, `${1}"`+Mask+`"`)
}
