package transcript

import (
	"sort"
	"strings"
)

// dedupPrefixLen is how much of a candidate's normalized content is used as
// its containment key. Fragments shorter than this are compared whole.
const dedupPrefixLen = 200

// Merge collapses overlapping candidates and joins same-role fragments that
// are evidently parts of one logical message. It is idempotent: running it
// on its own output changes nothing.
//
// Dedup rule: within a role, if the prefix key of one candidate is contained
// in another's content (or vice versa), the shorter candidate is dropped.
// Merge rule: adjacent surviving same-role fragments are concatenated when
// the earlier one lacks terminal punctuation or the later one reads as a
// continuation; main-content fragments come first, closing fragments last.
func Merge(cands []Candidate) []Candidate {
	if len(cands) <= 1 {
		return cands
	}

	ordered := make([]Candidate, len(cands))
	copy(ordered, cands)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Pos < ordered[j].Pos })

	deduped := dedup(ordered)
	return joinFragments(deduped)
}

func dedup(cands []Candidate) []Candidate {
	dropped := make([]bool, len(cands))
	for i := range cands {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if dropped[j] || cands[i].Role != cands[j].Role {
				continue
			}
			ki, kj := prefixKey(cands[i].Content), prefixKey(cands[j].Content)
			if ki == "" || kj == "" {
				continue
			}
			if !strings.Contains(cands[i].Content, kj) && !strings.Contains(cands[j].Content, ki) {
				continue
			}
			// Duplicate pair: keep the longer.
			if len(cands[i].Content) >= len(cands[j].Content) {
				dropped[j] = true
			} else {
				dropped[i] = true
			}
		}
	}
	out := cands[:0:0]
	for i, c := range cands {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return out
}

func prefixKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > dedupPrefixLen {
		// Cut at a rune boundary.
		cut := dedupPrefixLen
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// joinFragments merges runs of adjacent same-role candidates that look like
// pieces of one logical message.
func joinFragments(cands []Candidate) []Candidate {
	var out []Candidate
	i := 0
	for i < len(cands) {
		run := []Candidate{cands[i]}
		j := i + 1
		for j < len(cands) && cands[j].Role == cands[i].Role &&
			shouldJoin(run[len(run)-1], cands[j]) {
			run = append(run, cands[j])
			j++
		}
		out = append(out, joinRun(run))
		i = j
	}
	return out
}

// shouldJoin reports whether next continues prev within one logical message.
// Any hinted fragment joins its same-role neighbor regardless of encounter
// order; joinRun reorders the run main-first, closing-last afterwards.
func shouldJoin(prev, next Candidate) bool {
	if prev.Hint != FragNone || next.Hint != FragNone {
		return true
	}
	if !hasTerminalPunct(prev.Content) {
		return true
	}
	return startsAsContinuation(next.Content)
}

func joinRun(run []Candidate) Candidate {
	if len(run) == 1 {
		return run[0]
	}
	// Main content first, closing fragments last, document order otherwise.
	sort.SliceStable(run, func(i, j int) bool { return hintRank(run[i].Hint) < hintRank(run[j].Hint) })

	parts := make([]string, 0, len(run))
	for _, c := range run {
		parts = append(parts, c.Content)
	}
	merged := run[0]
	merged.Content = strings.Join(parts, "\n\n")
	merged.Hint = FragNone
	// Keep the earliest position and timestamp of the run.
	for _, c := range run[1:] {
		if c.Pos < merged.Pos {
			merged.Pos = c.Pos
		}
		if c.Timestamp != 0 && (merged.Timestamp == 0 || c.Timestamp < merged.Timestamp) {
			merged.Timestamp = c.Timestamp
		}
	}
	return merged
}

func hintRank(h FragmentHint) int {
	switch h {
	case FragMain:
		return 0
	case FragClosing:
		return 2
	}
	return 1
}

func hasTerminalPunct(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), "*_`\"')")
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}

var continuationWords = []string{
	"and ", "but ", "so ", "also ", "plus ", "then ", "which ", "because ",
}

func startsAsContinuation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	r := rune(s[0])
	if r >= 'a' && r <= 'z' {
		lower := strings.ToLower(s)
		for _, w := range continuationWords {
			if strings.HasPrefix(lower, w) {
				return true
			}
		}
	}
	return false
}
