// Package classify resolves message speaker roles from structural and
// lexical evidence.
//
// Structural resolution relies on a numeric role-indicator field whose
// sentinel values were discovered empirically and drift upstream without
// notice; they are carried in an overridable RoleTable, never hardcoded at
// call sites. Lexical resolution scores content against indicator tables
// and is the last resort.
package classify

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hazyhaar/chatgrab/transcript"
)

// RoleTable maps the payload's numeric role-indicator values to roles.
// Multiple sentinels per role are allowed since the marker vocabulary
// changes between payload versions.
type RoleTable struct {
	// Field is the name of the compact metadata field carrying the
	// indicator, e.g. "_2210".
	Field     string `yaml:"field"`
	User      []int  `yaml:"user"`
	Assistant []int  `yaml:"assistant"`
	System    []int  `yaml:"system"`
}

// DefaultRoleTable returns the sentinel values observed in current payloads.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		Field:     "_2210",
		User:      []int{18},
		Assistant: []int{2280},
	}
}

func (t RoleTable) fieldRe() *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(t.Field) + `":(\d+)`)
}

var textualRoleRe = regexp.MustCompile(`"role":"(user|assistant|system)"`)

// Resolve classifies the speaker from the metadata context preceding a
// content reference. Precedence: numeric role-indicator field, then an
// explicit textual role field, then unknown. When the context spans several
// messages, the indicator nearest the reference (the last match) wins.
// Given identical context the result is always identical.
func (t RoleTable) Resolve(context string) (transcript.Role, transcript.Evidence) {
	if t.Field != "" {
		if ms := t.fieldRe().FindAllStringSubmatch(context, -1); ms != nil {
			m := ms[len(ms)-1]
			v, _ := strconv.Atoi(m[1])
			if r := t.lookup(v); r != transcript.RoleUnknown {
				return r, transcript.Evidence{
					Source: transcript.EvidenceStructural,
					Value:  fmt.Sprintf("%s=%d", t.Field, v),
				}
			}
		}
	}
	if ms := textualRoleRe.FindAllStringSubmatch(context, -1); ms != nil {
		m := ms[len(ms)-1]
		return transcript.Role(m[1]), transcript.Evidence{
			Source: transcript.EvidenceExplicit,
			Value:  m[1],
		}
	}
	return transcript.RoleUnknown, transcript.Evidence{}
}

func (t RoleTable) lookup(v int) transcript.Role {
	for _, s := range t.User {
		if s == v {
			return transcript.RoleUser
		}
	}
	for _, s := range t.Assistant {
		if s == v {
			return transcript.RoleAssistant
		}
	}
	for _, s := range t.System {
		if s == v {
			return transcript.RoleSystem
		}
	}
	return transcript.RoleUnknown
}
