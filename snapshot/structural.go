// Package snapshot extracts message candidates from a decoded share-page
// payload. Two strategies live here: the structural extractor, which walks
// the payload's content-block and message-wrapper patterns, and the
// heuristic fallback, which scans raw quoted text when structure is absent.
package snapshot

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hazyhaar/chatgrab/classify"
	"github.com/hazyhaar/chatgrab/transcript"
)

var (
	// contentBlockRe matches a content block: an identifier in brackets
	// followed by a quoted body, e.g. [1523],"text...".
	contentBlockRe = regexp.MustCompile(`\[(\d+)\],"([^"]+(?:\\.[^"]+)*)"`)

	// wrapperRe matches a message wrapper: a fractional timestamp, a compact
	// metadata fragment, and a bracketed reference to a content block.
	wrapperRe = regexp.MustCompile(`(\d+\.\d+),\{"[^}]+"\},\[(\d+)\]`)
)

// Non-conversational prefixes: tool and system boilerplate that shows up as
// content blocks but is never a message.
var skipPrefixes = []string{
	"Original custom instructions",
	"The output of this plugin",
	"http://",
	"https://",
}

// Structural parses the decoded payload into content blocks and message
// wrappers and resolves roles from structural signals.
type Structural struct {
	// Roles maps the payload's role-indicator sentinels; defaults to the
	// currently observed vocabulary.
	Roles classify.RoleTable
	// MinBlockLen drops blocks whose cleaned text is shorter. Default 20.
	MinBlockLen int
	// ContextWindow is how far before a wrapper the role indicator is
	// searched for. Default 1000.
	ContextWindow int
}

func (s *Structural) defaults() {
	if s.Roles.Field == "" && s.Roles.User == nil {
		s.Roles = classify.DefaultRoleTable()
	}
	if s.MinBlockLen <= 0 {
		s.MinBlockLen = 20
	}
	if s.ContextWindow <= 0 {
		s.ContextWindow = 1000
	}
}

// Name identifies the strategy in logs and attempt records.
func (s *Structural) Name() string { return "structural" }

// Attempt extracts message candidates from the decoded payload. A nil
// result is an expected miss, not an error.
func (s *Structural) Attempt(decoded string) []transcript.Candidate {
	s.defaults()

	blocks := s.contentBlocks(decoded)
	if len(blocks) == 0 {
		return nil
	}

	var kept, fallback []transcript.Candidate
	for _, m := range wrapperRe.FindAllStringSubmatchIndex(decoded, -1) {
		ts, _ := strconv.ParseFloat(decoded[m[2]:m[3]], 64)
		id := decoded[m[4]:m[5]]
		text, ok := blocks[id]
		if !ok {
			continue
		}

		// The role indicator lives in the wrapper's metadata fragment or
		// shortly before it.
		start := m[0] - s.ContextWindow
		if start < 0 {
			start = 0
		}
		context := decoded[start:m[1]]
		role, ev := s.Roles.Resolve(context)

		c := transcript.Candidate{
			Role:      role,
			Content:   text,
			Timestamp: ts,
			Pos:       m[0],
			Evidence:  ev,
		}
		switch role {
		case transcript.RoleUser, transcript.RoleAssistant:
			kept = append(kept, c)
		default:
			// System and unknown are kept only when nothing else exists.
			fallback = append(fallback, c)
		}
	}

	if len(kept) > 0 {
		return kept
	}
	return fallback
}

// contentBlocks scans for [id],"body" patterns and returns the cleaned
// bodies of conversational blocks keyed by id.
func (s *Structural) contentBlocks(decoded string) map[string]string {
	blocks := make(map[string]string)
	for _, m := range contentBlockRe.FindAllStringSubmatch(decoded, -1) {
		text := transcript.Normalize(m[2])
		if len(text) <= s.MinBlockLen {
			continue
		}
		if hasSkipPrefix(text) {
			continue
		}
		// First body per id wins; later references reuse it.
		if _, seen := blocks[m[1]]; !seen {
			blocks[m[1]] = text
		}
	}
	return blocks
}

func hasSkipPrefix(text string) bool {
	for _, p := range skipPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}
