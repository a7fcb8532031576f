package transcript

import (
	"regexp"
	"strings"
)

// backslash sentinel used to protect doubled backslashes while the other
// escape sequences are reversed. NUL never appears in page text.
const bsSentinel = "\x00"

var (
	citationRe = regexp.MustCompile(`\s*(?:file)?cite(?:turn\d+(?:file|search|news|image)\d+)+\s*`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
)

// Normalize is the idempotent text cleanup applied to every candidate's
// content regardless of which strategy produced it: reverse residual
// single-level escape sequences, strip citation/tool-marker artifacts,
// collapse runs of 3+ newlines to 2, trim. Whitespace inside already-clean
// text is left alone.
func Normalize(s string) string {
	s = unescape(s)

	// Private-use runes wrap citation markers in some payload versions.
	s = strings.Map(func(r rune) rune {
		if r >= '\uE000' && r <= '\uF8FF' {
			return -1
		}
		switch r {
		case '\u200B', '\u200C', '\u200D', '\uFEFF': // zero-width + BOM
			return -1
		}
		return r
	}, s)

	s = citationRe.ReplaceAllString(s, " ")
	s = newlinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// unescape reverses one remaining level of escaping. It keys on the
// escaped-quote sequence: content with no `\"` left is already decoded, so
// a second pass never re-interprets backslashes the first pass restored; that
// keeps Normalize idempotent. Doubled backslashes are parked behind a
// sentinel and restored after the letter escapes, so `\\n` decodes to `\n`
// (backslash + letter) rather than a newline.
func unescape(s string) string {
	if !strings.Contains(s, `\"`) {
		return s
	}
	s = strings.ReplaceAll(s, `\\`, bsSentinel)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\r`, "\r")
	s = strings.ReplaceAll(s, `\/`, "/")
	return strings.ReplaceAll(s, bsSentinel, `\`)
}
