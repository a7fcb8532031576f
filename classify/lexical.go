package classify

import (
	"regexp"

	"github.com/hazyhaar/chatgrab/transcript"
)

// indicator is one scored lexical signal. The tables below are data, not
// control flow: adjusting the heuristic means adjusting weights, not code.
type indicator struct {
	re     *regexp.Regexp
	weight float64
}

// Signals favoring a user message: question forms, imperative requests,
// first-person asks.
var userSignals = []indicator{
	{regexp.MustCompile(`\?\s*$`), 2.0},
	{regexp.MustCompile(`(?i)\bcan you\b`), 1.5},
	{regexp.MustCompile(`(?i)\bcould you\b`), 1.5},
	{regexp.MustCompile(`(?i)\bhelp me\b`), 1.5},
	{regexp.MustCompile(`(?i)\bplease\b`), 1.0},
	{regexp.MustCompile(`(?i)\bhow (do|can) i\b`), 1.5},
	{regexp.MustCompile(`(?i)\bwhat (is|are)\b`), 1.0},
	{regexp.MustCompile(`(?i)\bi (want|need|am|think|have)\b`), 1.0},
	{regexp.MustCompile(`(?i)\bwhat do you think\b`), 2.0},
}

// Signals favoring an assistant message: structured markers and analytical
// connectives.
var assistantSignals = []indicator{
	{regexp.MustCompile(`(?m)^#{1,3}\s`), 2.0},
	{regexp.MustCompile(`\*\*[^*]+\*\*`), 1.0},
	{regexp.MustCompile(`(?m)^\d+\.\s`), 1.5},
	{regexp.MustCompile(`(?m)^[-*]\s`), 1.0},
	{regexp.MustCompile(`(?i)\bhere (is|are)\b`), 1.0},
	{regexp.MustCompile(`(?i)\blet's\b`), 1.0},
	{regexp.MustCompile(`(?i)\b(however|therefore|specifically|in summary|to address)\b`), 1.0},
	{regexp.MustCompile("```"), 2.0},
}

// shortUserLen: short messages lean user; long structured ones lean assistant.
const shortUserLen = 300

// Lexical scores content against the indicator tables and returns the more
// likely role with a confidence in [0,1]. A tie returns RoleUnknown with
// zero confidence; callers decide the tie-break (typically alternation by
// document position).
func Lexical(text string) (transcript.Role, float64) {
	var user, assistant float64
	for _, s := range userSignals {
		if s.re.MatchString(text) {
			user += s.weight
		}
	}
	for _, s := range assistantSignals {
		if s.re.MatchString(text) {
			assistant += s.weight
		}
	}
	if len(text) < shortUserLen {
		user += 0.5
	}

	total := user + assistant
	if total == 0 || user == assistant {
		return transcript.RoleUnknown, 0
	}
	if user > assistant {
		return transcript.RoleUser, (user - assistant) / total
	}
	return transcript.RoleAssistant, (assistant - user) / total
}
