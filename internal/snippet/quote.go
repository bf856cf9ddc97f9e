package snippet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.followtheprocess.codes/snip/internal/model"
)

// isText reports whether body is valid UTF-8 without control characters other
// than tabs and line breaks, i.e. something safe to paste into source code.
func isText(body []byte) bool {
	if !utf8.Valid(body) {
		return false
	}

	for _, r := range string(body) {
		if (r < ' ' && r != '\t' && r != '\n' && r != '\r') || r == 0x7f {
			return false
		}
	}

	return true
}

// isToken reports whether s is a non empty HTTP token (RFC 9110 section 5.6.2),
// the grammar of methods and header names.
func isToken(s string) bool {
	if s == "" {
		return false
	}

	for _, c := range []byte(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}

	return true
}

// shellWord returns s unchanged if the shell would read it back literally,
// otherwise it quotes it with [shellQuote].
func shellWord(s string) string {
	for _, c := range []byte(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return shellQuote(s)
		}
	}

	if s == "" {
		return shellQuote(s)
	}

	return s
}

// shellQuote quotes s as a single POSIX shell word.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// printfEscape escapes arbitrary bytes for use as a printf format string, non
// printable bytes become octal escapes.
func printfEscape(data []byte) string {
	b := &strings.Builder{}

	for _, c := range data {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '%':
			b.WriteString("%%")
		case c >= ' ' && c <= '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(b, `\%03o`, c)
		}
	}

	return b.String()
}

// jsString quotes s as a JavaScript (and Python) double quoted string literal.
func jsString(s string) string {
	buf := &bytes.Buffer{}

	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)

	// Encoding a string cannot fail
	_ = encoder.Encode(s) //nolint:errcheck,errchkjson // See above

	return strings.TrimSuffix(buf.String(), "\n")
}

// pyBytes renders data as a python bytes literal.
func pyBytes(data []byte) string {
	b := &strings.Builder{}
	b.WriteString(`b"`)

	for _, c := range data {
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c >= ' ' && c <= '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(b, `\x%02x`, c)
		}
	}

	b.WriteByte('"')

	return b.String()
}

// psString quotes s as a PowerShell single quoted (verbatim) string.
func psString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// combineHeaders merges repeated headers into one, joining their values with ", ",
// for clients that take headers as a map. Names keep the case and position of
// their first occurrence.
func combineHeaders(headers model.Headers) model.Headers {
	combined := make(model.Headers, 0, len(headers))
	index := make(map[string]int, len(headers))

	for _, header := range headers {
		key := strings.ToLower(header.Name)
		if i, ok := index[key]; ok {
			combined[i].Value += ", " + header.Value
			continue
		}

		index[key] = len(combined)
		combined = append(combined, header)
	}

	return combined
}
