package livepage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/chatgrab/transcript"
)

// ErrNavigation is returned when the page cannot be reached or rendered
// within the navigation timeout.
var ErrNavigation = errors.New("livepage: navigation or render failure")

// ErrNoMarkup is returned when no message markup appears within the wait
// timeout.
var ErrNoMarkup = errors.New("livepage: no message markup found")

// Config tunes the live extraction protocol.
type Config struct {
	// RoleAttr is the per-message role attribute, the highest-precision
	// signal. Default "data-message-author-role".
	RoleAttr string `yaml:"role_attr"`

	// ContainerSelectors are tried in order for positional-alternation
	// extraction when no role attribute exists.
	ContainerSelectors []string `yaml:"container_selectors"`

	// TurnSelector picks message turns inside a container.
	TurnSelector string `yaml:"turn_selector"`

	// NavigateTimeout bounds navigation + initial render. Default 30s.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`

	// MarkupTimeout bounds the wait for message markup. Default 10s.
	MarkupTimeout time.Duration `yaml:"markup_timeout"`

	// Scroll bounds the convergence loop.
	Scroll ScrollConfig `yaml:"scroll"`

	// MinTurnLen / MinFreeTextLen filter trivial blocks per tier.
	MinTurnLen     int `yaml:"min_turn_len"`
	MinFreeTextLen int `yaml:"min_free_text_len"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.RoleAttr == "" {
		c.RoleAttr = "data-message-author-role"
	}
	if len(c.ContainerSelectors) == 0 {
		c.ContainerSelectors = []string{
			`[class*="react-scroll-to-bottom"]`,
			`[class*="conversation"]`,
			"main",
		}
	}
	if c.TurnSelector == "" {
		c.TurnSelector = ".flex > div"
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.MarkupTimeout <= 0 {
		c.MarkupTimeout = 10 * time.Second
	}
	if c.MinTurnLen <= 0 {
		c.MinTurnLen = 20
	}
	if c.MinFreeTextLen <= 0 {
		c.MinFreeTextLen = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor drives a browser session per request. Failures are reported,
// never retried here; retry policy belongs to the caller.
type Extractor struct {
	browser *Browser
	cfg     Config
}

// NewExtractor creates a live page extractor on a shared Browser.
func NewExtractor(browser *Browser, cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{browser: browser, cfg: cfg}
}

// Extract navigates to the URL, forces all lazy content into the DOM, and
// runs the tiered strategies. Candidate content is already normalized-ready
// markdown or plain text; the caller runs the shared pipeline.
func (e *Extractor) Extract(ctx context.Context, pageURL string) ([]transcript.Candidate, error) {
	log := e.cfg.Logger.With("url", pageURL)

	page, err := e.browser.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer page.Close()

	// Navigate and wait for the network to settle, bounded.
	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavigateTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("%w: navigate: %v", ErrNavigation, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: wait load: %v", ErrNavigation, err)
	}

	// Wait for message markup, bounded. Any of the known shapes counts.
	waitSel := "[" + e.cfg.RoleAttr + "], " + e.cfg.ContainerSelectors[0]
	markupCtx, cancelMarkup := context.WithTimeout(ctx, e.cfg.MarkupTimeout)
	defer cancelMarkup()
	if _, err := page.Context(markupCtx).Element(waitSel); err != nil {
		return nil, fmt.Errorf("%w: waited %s for %q", ErrNoMarkup, e.cfg.MarkupTimeout, waitSel)
	}

	// Force lazy-loaded content into the DOM.
	iterations, err := LoadAll(ctx, rodScroller{page: page}, e.cfg.Scroll, log)
	if err != nil {
		return nil, fmt.Errorf("%w: scroll: %v", ErrNavigation, err)
	}
	log.Debug("livepage: content loaded", "scroll_iterations", iterations)

	return e.extractFromDOM(ctx, rodDOM{page: page}, pageURL, log)
}

// extractFromDOM runs the strategy tiers over any DOM. Split out so the
// tier logic is testable without a browser.
func (e *Extractor) extractFromDOM(ctx context.Context, dom DOM, pageURL string, log *slog.Logger) ([]transcript.Candidate, error) {
	renderer := newContentRenderer(log)

	tiers := []struct {
		name    string
		attempt func(context.Context, DOM) ([]transcript.Candidate, error)
	}{
		{"attribute", (&attributeStrategy{attr: e.cfg.RoleAttr, renderer: renderer, pageURL: pageURL}).attempt},
		{"container", (&containerStrategy{containers: e.cfg.ContainerSelectors, turns: e.cfg.TurnSelector, minLen: e.cfg.MinTurnLen}).attempt},
		{"freetext", (&freetextStrategy{minLen: e.cfg.MinFreeTextLen, logger: log}).attempt},
	}

	for _, tier := range tiers {
		cands, err := tier.attempt(ctx, dom)
		if err != nil {
			log.Warn("livepage: strategy failed, falling through", "strategy", tier.name, "error", err)
			continue
		}
		if len(cands) == 0 {
			log.Debug("livepage: strategy found nothing", "strategy", tier.name)
			continue
		}
		log.Info("livepage: extracted", "strategy", tier.name, "candidates", len(cands))
		return cands, nil
	}
	return nil, nil
}
