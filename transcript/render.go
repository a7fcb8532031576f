package transcript

import "strings"

// separator is the fixed rule between rendered messages: a blank line,
// a full-width rule, a blank line.
const separator = "\n\n" + "================================================================================" + "\n\n"

// Render produces the plain-text form consumed by downstream collaborators:
// each message as "Role:\ncontent", joined by the separator rule.
func (t *Transcript) Render() string {
	if len(t.Messages) == 0 {
		return ""
	}
	parts := make([]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		parts = append(parts, m.Role.Title()+":\n"+m.Content)
	}
	return strings.Join(parts, separator)
}
