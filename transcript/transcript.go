// Package transcript defines the structured output of a conversation
// extraction: ordered, role-labeled messages plus conversation metadata.
//
// Candidates are what extraction strategies produce; they may be partial,
// duplicated or mis-ordered. Normalize, Merge and FromCandidates turn them
// into the final Transcript.
package transcript

import "sort"

// Role identifies the speaker of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleUnknown   Role = "unknown"
)

// Title returns the display form of the role ("user" becomes "User").
func (r Role) Title() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	}
	return "Unknown"
}

// EvidenceSource tells how a candidate's role was decided.
type EvidenceSource string

const (
	EvidenceStructural EvidenceSource = "structural" // numeric sentinel field
	EvidenceExplicit   EvidenceSource = "explicit"   // textual role field or DOM attribute
	EvidenceLexical    EvidenceSource = "lexical"    // content heuristics
)

// Evidence records the signal behind a role classification.
type Evidence struct {
	Source EvidenceSource
	Value  string
}

// FragmentHint flags a candidate's structural position within a logical
// message, used by Merge to order concatenated fragments.
type FragmentHint int

const (
	FragNone    FragmentHint = iota
	FragMain                 // structurally-flagged main content
	FragClosing              // trailing fragment, e.g. a closing question
)

// Candidate is a message produced by one extraction strategy. It may be a
// fragment or a duplicate of another candidate.
type Candidate struct {
	Role      Role
	Content   string
	Timestamp float64 // unix seconds; 0 means absent
	Pos       int     // document-encounter order
	Evidence  Evidence
	Hint      FragmentHint
}

// Message is a validated, deduplicated conversation message.
type Message struct {
	Role      Role    `json:"role"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// Transcript is the final structured conversation.
type Transcript struct {
	Title      string    `json:"title"`
	CreateTime float64   `json:"create_time,omitempty"`
	UpdateTime float64   `json:"update_time,omitempty"`
	Messages   []Message `json:"messages"`
}

// FromCandidates converts merged candidates into validated messages.
// Empty-content candidates are dropped. Unknown-role candidates are dropped
// unless keepUnknown is set; they are never promoted to a guessed role.
// Ordering: ascending timestamp when every candidate carries one, otherwise
// original document order, never a mix.
func FromCandidates(cands []Candidate, keepUnknown bool) []Message {
	kept := make([]Candidate, 0, len(cands))
	allTimed := true
	for _, c := range cands {
		if c.Content == "" {
			continue
		}
		if c.Role == RoleUnknown && !keepUnknown {
			continue
		}
		if c.Timestamp == 0 {
			allTimed = false
		}
		kept = append(kept, c)
	}

	if allTimed && len(kept) > 0 {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp < kept[j].Timestamp })
	} else {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].Pos < kept[j].Pos })
	}

	msgs := make([]Message, 0, len(kept))
	for _, c := range kept {
		msgs = append(msgs, Message{Role: c.Role, Content: c.Content, Timestamp: c.Timestamp})
	}
	return msgs
}
