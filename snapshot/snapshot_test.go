package snapshot

import (
	"strings"
	"testing"

	"github.com/hazyhaar/chatgrab/transcript"
)

// structuredPayload is a decoded payload in the compact serialized form:
// message wrappers referencing content blocks, with the numeric role field
// in each wrapper's metadata fragment.
const structuredPayload = `{"title":"Trip planning","create_time":1718000100.5,"update_time":1718000400.5}` +
	`,1718000100.5,{"_2210":18,"_2218":"a"},[1523],"Can you help me plan a week in Lyon with two kids?"` +
	`,1718000200.5,{"_2210":2280,"_2218":"m"},[1544],"Here is a week-long Lyon plan balancing museums, parks and food markets for the kids."` +
	`,1718000300.5,{"_2210":18,"_2218":"a"},[1561],"What about day trips outside the city for the weekend?"`

func TestStructural_Attempt(t *testing.T) {
	s := &Structural{}
	cands := s.Attempt(structuredPayload)
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}

	wantRoles := []transcript.Role{transcript.RoleUser, transcript.RoleAssistant, transcript.RoleUser}
	for i, c := range cands {
		if c.Role != wantRoles[i] {
			t.Errorf("candidate %d role: got %q, want %q", i, c.Role, wantRoles[i])
		}
		if c.Evidence.Source != transcript.EvidenceStructural {
			t.Errorf("candidate %d evidence: got %q", i, c.Evidence.Source)
		}
		if c.Timestamp == 0 {
			t.Errorf("candidate %d missing timestamp", i)
		}
	}
	if !strings.Contains(cands[0].Content, "Lyon") {
		t.Errorf("content: %q", cands[0].Content)
	}
	if cands[0].Timestamp != 1718000100.5 {
		t.Errorf("timestamp: got %v", cands[0].Timestamp)
	}
}

func TestStructural_SkipsBoilerplateBlocks(t *testing.T) {
	payload := `1718000100.5,{"_2210":18,"_2218":"a"},[10],"Original custom instructions are hidden from this conversation entirely"` +
		`,1718000200.5,{"_2210":2280,"_2218":"m"},[11],"A real answer with enough length to clear the minimum block threshold."`
	s := &Structural{}
	cands := s.Attempt(payload)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Role != transcript.RoleAssistant {
		t.Errorf("role: got %q", cands[0].Role)
	}
}

func TestStructural_NoStructure(t *testing.T) {
	s := &Structural{}
	if cands := s.Attempt("free text, no wrappers or blocks anywhere"); cands != nil {
		t.Errorf("got %d candidates, want none", len(cands))
	}
}

func TestStructural_UnknownRolesOnlyAsFallback(t *testing.T) {
	// Unmapped sentinels: candidates survive only because nothing better
	// exists, and they stay unknown rather than being promoted.
	payload := `1718000100.5,{"_2210":7777,"_2218":"a"},[10],"Some message content long enough to survive the block length filter."`
	s := &Structural{}
	cands := s.Attempt(payload)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates", len(cands))
	}
	if cands[0].Role != transcript.RoleUnknown {
		t.Errorf("role: got %q, want unknown", cands[0].Role)
	}
}

// heuristicPayload has quoted blocks but no wrapper structure at all.
const heuristicPayload = `garbage {"x":1} "Can you compare the high speed rail options between Paris and Marseille for a family of four traveling in late spring please?" filler ` +
	`"Here is a comparison of the rail options. However, prices vary by season, so treat these numbers as an estimate for planning purposes only." tail`

func TestHeuristic_Attempt(t *testing.T) {
	h := &Heuristic{}
	cands := h.Attempt(heuristicPayload)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Role != transcript.RoleUser {
		t.Errorf("first role: got %q (evidence %q)", cands[0].Role, cands[0].Evidence.Value)
	}
	if cands[1].Role != transcript.RoleAssistant {
		t.Errorf("second role: got %q (evidence %q)", cands[1].Role, cands[1].Evidence.Value)
	}
	for _, c := range cands {
		if c.Evidence.Source != transcript.EvidenceLexical {
			t.Errorf("evidence source: got %q", c.Evidence.Source)
		}
	}
}

func TestHeuristic_FiltersShortAndCode(t *testing.T) {
	payload := `"short quoted" ` +
		`"window.__reactRouterContext = something something hydration state for the page shell and assorted bootstrapping flags etc etc" ` +
		`"A genuine conversational block asking whether the itinerary should include the old town and the riverside market districts?"`
	h := &Heuristic{}
	cands := h.Attempt(payload)
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if !strings.Contains(cands[0].Content, "itinerary") {
		t.Errorf("content: %q", cands[0].Content)
	}
}

func TestHeuristic_ClosingHint(t *testing.T) {
	payload := `"The full roadmap covers phase 1 discovery and phase 2 delivery, with owners and rough dates attached to every workstream." ` +
		`"Happy to expand any of those sections further, what do you think of the overall shape and of the split between the phases?"`
	h := &Heuristic{}
	cands := h.Attempt(payload)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates", len(cands))
	}
	if cands[0].Hint != transcript.FragMain {
		t.Errorf("first hint: got %v, want main", cands[0].Hint)
	}
	if cands[1].Hint != transcript.FragClosing {
		t.Errorf("second hint: got %v, want closing", cands[1].Hint)
	}
}
