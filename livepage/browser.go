// Package livepage extracts message candidates from a live, dynamically
// rendered share page. It drives a headless browser, forces lazy-loaded
// content into the DOM with a convergence-based scroll loop, then extracts
// via attribute-based, container-based and free-text strategies in that
// priority order.
package livepage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the shared browser handle.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string `yaml:"remote_url"`

	// ResourceBlocking lists resource types to block on every session
	// (images, fonts, media, stylesheets). Share pages render their text
	// without them, and blocking cuts load time sharply.
	ResourceBlocking []string `yaml:"resource_blocking"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *BrowserConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser is the process-wide browser handle. It spawns an independent
// stealth page per extraction request; sessions share nothing but the
// underlying Chrome process.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser creates a Browser. Chrome is launched lazily on first use.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Session opens a fresh stealth page for one extraction. The caller owns
// the page and must Close it.
func (b *Browser) Session(ctx context.Context) (*rod.Page, error) {
	br, err := b.handle()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, fmt.Errorf("livepage: create session: %w", err)
	}

	if len(b.cfg.ResourceBlocking) > 0 {
		if err := blockResources(page, b.cfg.ResourceBlocking); err != nil {
			b.cfg.Logger.Warn("livepage: resource blocking failed", "error", err)
		}
	}
	return page, nil
}

// Close shuts down Chrome.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return nil
}

func (b *Browser) handle() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("livepage: browser is closed")
	}
	if b.browser != nil {
		return b.browser, nil
	}

	log := b.cfg.Logger
	var wsURL string

	if b.cfg.RemoteURL != "" {
		wsURL = b.cfg.RemoteURL
		log.Info("livepage: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("livepage: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("livepage: launched local chrome", "url", wsURL)
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("livepage: connect: %w", err)
	}
	b.browser = br
	return br, nil
}

// blockResources intercepts requests and fails the configured types.
func blockResources(page *rod.Page, types []string) error {
	blockSet := make(map[string]bool, len(types))
	for _, t := range types {
		blockSet[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

func shouldBlock(blockSet map[string]bool, resType string) bool {
	switch strings.ToLower(resType) {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	}
	return blockSet[strings.ToLower(resType)]
}
