package classify

import (
	"regexp"
	"strings"
)

// Filters separating conversation text from the machinery around it.
// They trade precision for recall and are used only on the heuristic and
// free-text paths where no structural signal exists.

var scriptTokens = []string{
	"window.__", "function(", "var ", "const ", "let ",
	"getelementbyid", "addeventlistener", "document.",
	".js", ".css", "mozilla/5.0",
}

// LooksLikeMetadata reports whether text reads as page machinery rather
// than conversation content.
func LooksLikeMetadata(text string) bool {
	if len(text) < 20 {
		return true
	}
	lower := strings.ToLower(text)
	for _, tok := range scriptTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	// Too many quotes for prose.
	return strings.Count(text, `"`)*10 > len(text)
}

// LooksLikeCode reports whether text is code or serialized structure:
// excess braces, brackets, underscores, or script-like openings.
func LooksLikeCode(text string) bool {
	if strings.Count(text, "{") > 3 || strings.Count(text, "[") > 3 {
		return true
	}
	if strings.Count(text, "_")*20 > len(text) {
		return true
	}
	if strings.Count(text, `\u`) > 2 {
		return true
	}
	return strings.HasPrefix(text, "window.") || strings.HasPrefix(text, "function")
}

var thoughtForRe = regexp.MustCompile(`(?i)thought for \d+ (second|minute)s?`)

var reasoningScaffolds = []string{
	"let me think", "i need to", "first, i should",
	"breaking this down", "i'll stick to", "i'm aiming to",
}

// LooksLikeReasoning reports whether text is chain-of-thought scaffolding
// rather than a message the model actually sent.
func LooksLikeReasoning(text string) bool {
	if thoughtForRe.MatchString(text) {
		return true
	}
	if len(text) >= 500 {
		return false
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, s := range reasoningScaffolds {
		if strings.Contains(lower, s) {
			hits++
		}
	}
	return hits > 1
}
