package livepage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
)

// Scroller is the minimal surface the convergence loop needs from a page.
// The rod page satisfies it via rodScroller; tests use a fake.
type Scroller interface {
	ToTop(ctx context.Context) error
	Up(ctx context.Context, px int) error
	ToBottom(ctx context.Context) error
	Offset(ctx context.Context) (float64, error)
	Height(ctx context.Context) (float64, error)
}

// ScrollConfig bounds the convergence loop.
type ScrollConfig struct {
	// MaxIterations is the safety valve for both phases. Default 50.
	MaxIterations int `yaml:"max_iterations"`
	// TopStableReads is how many consecutive zero-offset reads confirm the
	// true top was reached (lazy unload makes a single read unreliable).
	// Default 3.
	TopStableReads int `yaml:"top_stable_reads"`
	// UpStep is the upward scroll increment in pixels. Default 1000.
	UpStep int `yaml:"up_step"`
	// SettleDelay is the fixed pause after each scroll so lazy content can
	// materialize. Default 1s.
	SettleDelay time.Duration `yaml:"settle_delay"`
}

func (c *ScrollConfig) defaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
	if c.TopStableReads <= 0 {
		c.TopStableReads = 3
	}
	if c.UpStep <= 0 {
		c.UpStep = 1000
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = time.Second
	}
}

// LoadAll runs the scroll convergence loop: reach the true top (confirmed
// by several consecutive stable reads), then scroll to the bottom until the
// document height stops growing, then return to the top for extraction.
// It returns the number of downward iterations used.
func LoadAll(ctx context.Context, s Scroller, cfg ScrollConfig, log *slog.Logger) (int, error) {
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}

	// Phase 1: find the true beginning. Lazy loading can bounce the offset
	// away from zero, so the top counts only after consecutive confirmations.
	if err := s.ToTop(ctx); err != nil {
		return 0, fmt.Errorf("livepage: scroll to top: %w", err)
	}
	if err := settle(ctx, cfg.SettleDelay); err != nil {
		return 0, err
	}

	stable := 0
	for i := 0; i < cfg.MaxIterations && stable < cfg.TopStableReads; i++ {
		before, err := s.Offset(ctx)
		if err != nil {
			return 0, fmt.Errorf("livepage: read offset: %w", err)
		}
		if err := s.Up(ctx, cfg.UpStep); err != nil {
			return 0, fmt.Errorf("livepage: scroll up: %w", err)
		}
		if err := settle(ctx, cfg.SettleDelay); err != nil {
			return 0, err
		}
		after, err := s.Offset(ctx)
		if err != nil {
			return 0, fmt.Errorf("livepage: read offset: %w", err)
		}
		if after == 0 && before == 0 {
			stable++
		} else {
			stable = 0
		}
	}

	// Phase 2: scroll down until the height converges.
	prev, err := s.Height(ctx)
	if err != nil {
		return 0, fmt.Errorf("livepage: read height: %w", err)
	}

	iterations := 0
	for i := 0; i < cfg.MaxIterations; i++ {
		if err := s.ToBottom(ctx); err != nil {
			return iterations, fmt.Errorf("livepage: scroll to bottom: %w", err)
		}
		if err := settle(ctx, cfg.SettleDelay); err != nil {
			return iterations, err
		}
		iterations++

		h, err := s.Height(ctx)
		if err != nil {
			return iterations, fmt.Errorf("livepage: read height: %w", err)
		}
		if h == prev {
			break
		}
		prev = h
	}
	log.Debug("livepage: scroll converged", "iterations", iterations, "height", prev)

	// Back to the top before extraction.
	if err := s.ToTop(ctx); err != nil {
		return iterations, fmt.Errorf("livepage: return to top: %w", err)
	}
	if err := settle(ctx, cfg.SettleDelay); err != nil {
		return iterations, err
	}
	return iterations, nil
}

func settle(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// rodScroller adapts a rod page to the Scroller interface.
type rodScroller struct {
	page *rod.Page
}

func (r rodScroller) ToTop(ctx context.Context) error {
	_, err := r.page.Context(ctx).Eval(`() => window.scrollTo(0, 0)`)
	return err
}

func (r rodScroller) Up(ctx context.Context, px int) error {
	_, err := r.page.Context(ctx).Eval(`(px) => window.scrollBy(0, -px)`, px)
	return err
}

func (r rodScroller) ToBottom(ctx context.Context) error {
	_, err := r.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (r rodScroller) Offset(ctx context.Context) (float64, error) {
	res, err := r.page.Context(ctx).Eval(`() => window.pageYOffset`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (r rodScroller) Height(ctx context.Context) (float64, error) {
	res, err := r.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}
