package snapshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hazyhaar/chatgrab/classify"
	"github.com/hazyhaar/chatgrab/transcript"
)

// quotedBlockRe matches substantial quoted text blocks in the decoded
// payload. The length floor keeps titles, URLs and field values out.
var quotedBlockRe = regexp.MustCompile(`"([^"]{100,})"`)

// Fragment-hint markers: phrases that flag a block as the main body or the
// trailing close of a fragmented message.
var (
	mainMarkers    = []string{"roadmap", "phase 1", "phase 2", "vision:", "core use case"}
	closingMarkers = []string{"what do you think", "thoughts?", "does that make sense"}
)

// Heuristic is the last-resort extractor: it scans raw quoted blocks and
// classifies roles lexically. It trades precision for recall and runs only
// when the structural extractor yields nothing valid.
type Heuristic struct {
	// MinLen drops cleaned blocks shorter than this. Default 100.
	MinLen int
	// MinWords drops blocks with fewer words (stray titles). Default 10.
	MinWords int
}

func (h *Heuristic) defaults() {
	if h.MinLen <= 0 {
		h.MinLen = 100
	}
	if h.MinWords <= 0 {
		h.MinWords = 10
	}
}

// Name identifies the strategy in logs and attempt records.
func (h *Heuristic) Name() string { return "heuristic" }

// Attempt scans the decoded payload (or any page text) for substantial
// quoted blocks and classifies them lexically. Ties alternate by position,
// user first.
func (h *Heuristic) Attempt(text string) []transcript.Candidate {
	h.defaults()

	var cands []transcript.Candidate
	seen := 0
	for _, m := range quotedBlockRe.FindAllStringSubmatchIndex(text, -1) {
		body := transcript.Normalize(text[m[2]:m[3]])
		if len(body) < h.MinLen || len(strings.Fields(body)) < h.MinWords {
			continue
		}
		if hasSkipPrefix(body) {
			continue
		}
		if classify.LooksLikeMetadata(body) || classify.LooksLikeCode(body) ||
			classify.LooksLikeReasoning(body) {
			continue
		}

		role, conf := classify.Lexical(body)
		ev := transcript.Evidence{
			Source: transcript.EvidenceLexical,
			Value:  fmt.Sprintf("confidence=%.2f", conf),
		}
		if role == transcript.RoleUnknown {
			// Tie: alternate by position, user first.
			if seen%2 == 0 {
				role = transcript.RoleUser
			} else {
				role = transcript.RoleAssistant
			}
			ev.Value = "alternation"
		}

		cands = append(cands, transcript.Candidate{
			Role:     role,
			Content:  body,
			Pos:      m[0],
			Evidence: ev,
			Hint:     fragmentHint(body),
		})
		seen++
	}
	return cands
}

// fragmentHint flags blocks that read as the main body or the trailing
// close of a larger message, so the merger can order them.
func fragmentHint(body string) transcript.FragmentHint {
	lower := strings.ToLower(body)
	for _, m := range closingMarkers {
		if strings.Contains(lower, m) && len(body) < 400 {
			return transcript.FragClosing
		}
	}
	for _, m := range mainMarkers {
		if strings.Contains(lower, m) {
			return transcript.FragMain
		}
	}
	return transcript.FragNone
}
