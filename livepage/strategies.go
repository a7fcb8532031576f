package livepage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hazyhaar/chatgrab/classify"
	"github.com/hazyhaar/chatgrab/transcript"
)

// Strategy tiers, highest precision first. Each is an expected-miss
// function: (nil, nil) means "found nothing", not failure.

// attributeStrategy extracts elements carrying an explicit per-message role
// attribute. This is the highest-precision tier: the page itself labels
// every message.
type attributeStrategy struct {
	attr     string // e.g. "data-message-author-role"
	renderer *contentRenderer
	pageURL  string
}

func (s *attributeStrategy) name() string { return "attribute" }

func (s *attributeStrategy) attempt(ctx context.Context, dom DOM) ([]transcript.Candidate, error) {
	nodes, err := dom.All(ctx, "["+s.attr+"]")
	if err != nil {
		return nil, err
	}

	var cands []transcript.Candidate
	for i, n := range nodes {
		val, ok, err := n.Attr(ctx, s.attr)
		if err != nil || !ok {
			continue
		}
		role := transcript.Role(strings.ToLower(val))
		switch role {
		case transcript.RoleUser, transcript.RoleAssistant, transcript.RoleSystem:
		default:
			role = transcript.RoleUnknown
		}

		text, err := n.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		content := text
		if elHTML, err := n.HTML(ctx); err == nil {
			content = s.renderer.render(elHTML, s.pageURL, text)
		}

		cands = append(cands, transcript.Candidate{
			Role:     role,
			Content:  content,
			Pos:      i,
			Evidence: transcript.Evidence{Source: transcript.EvidenceExplicit, Value: s.attr + "=" + val},
		})
	}
	return cands, nil
}

// containerStrategy extracts direct message turns from a recognized
// conversation container and assigns roles by positional alternation,
// user first. Used when no role attribute exists in the markup.
type containerStrategy struct {
	containers []string // candidate container selectors
	turns      string   // selector for message turns within a container
	minLen     int
}

func (s *containerStrategy) name() string { return "container" }

func (s *containerStrategy) attempt(ctx context.Context, dom DOM) ([]transcript.Candidate, error) {
	for _, sel := range s.containers {
		containers, err := dom.All(ctx, sel)
		if err != nil || len(containers) == 0 {
			continue
		}
		turns, err := containers[0].All(ctx, s.turns)
		if err != nil {
			continue
		}

		var cands []transcript.Candidate
		for i, turn := range turns {
			text, err := turn.Text(ctx)
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if len(text) <= s.minLen {
				continue
			}
			role := transcript.RoleUser
			if len(cands)%2 == 1 {
				role = transcript.RoleAssistant
			}
			cands = append(cands, transcript.Candidate{
				Role:     role,
				Content:  text,
				Pos:      i,
				Evidence: transcript.Evidence{Source: transcript.EvidenceStructural, Value: "container-alternation"},
			})
		}
		if len(cands) > 0 {
			return cands, nil
		}
	}
	return nil, nil
}

// freetextStrategy scans all substantial text blocks on the page and
// classifies them with the same lexical heuristics as the snapshot
// fallback. Last resort: recall over precision.
type freetextStrategy struct {
	minLen int
	logger *slog.Logger
}

func (s *freetextStrategy) name() string { return "freetext" }

func (s *freetextStrategy) attempt(ctx context.Context, dom DOM) ([]transcript.Candidate, error) {
	nodes, err := dom.All(ctx, "div")
	if err != nil {
		return nil, err
	}

	// Collect substantial, non-machinery texts; containment-dedup keeps the
	// outermost (longest) block of each nested run.
	var texts []string
	for _, n := range nodes {
		text, err := n.Text(ctx)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if len(text) < s.minLen || classify.LooksLikeMetadata(text) {
			continue
		}
		dup := false
		for j, existing := range texts {
			if strings.Contains(existing, text) {
				dup = true
				break
			}
			if strings.Contains(text, existing) {
				texts[j] = text
				dup = true
				break
			}
		}
		if !dup {
			texts = append(texts, text)
		}
	}

	var cands []transcript.Candidate
	for i, text := range texts {
		role, conf := classify.Lexical(text)
		if role == transcript.RoleUnknown {
			if i%2 == 0 {
				role = transcript.RoleUser
			} else {
				role = transcript.RoleAssistant
			}
		}
		if s.logger != nil && conf == 0 {
			s.logger.Debug("livepage: freetext role by alternation", "pos", i)
		}
		cands = append(cands, transcript.Candidate{
			Role:     role,
			Content:  text,
			Pos:      i,
			Evidence: transcript.Evidence{Source: transcript.EvidenceLexical, Value: "freetext"},
		})
	}
	return cands, nil
}
