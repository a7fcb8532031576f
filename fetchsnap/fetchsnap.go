// Package fetchsnap retrieves static page snapshots over HTTP for payload
// extraction. It enforces size limits and blocks requests to private
// address space on both the initial URL and every redirect hop.
package fetchsnap

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hazyhaar/chatgrab/payload"
)

// ErrBlocked is returned when a URL fails validation before any request is
// sent.
var ErrBlocked = errors.New("fetchsnap: url blocked")

// Result is one retrieved snapshot.
type Result struct {
	Body       string
	StatusCode int
	Hash       string // SHA-256 of body
	// HasPayload reports whether the snapshot carries an embedded
	// conversation payload, i.e. whether it is sufficient on its own or
	// the caller should fall back to live rendering.
	HasPayload bool
}

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`    // default 30s
	MaxBytes  int64         `yaml:"max_bytes"`  // default 10MB
	UserAgent string        `yaml:"user_agent"` // sent with requests

	// URLValidator validates URLs before fetch and on each redirect.
	// Default: ValidateURL.
	URLValidator func(string) error `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "chatgrab/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
}

// ValidateURL rejects non-HTTP schemes and hostnames that resolve only to
// loopback, link-local, or private address space.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("empty host")
	}
	if ip := net.ParseIP(host); ip != nil {
		if isPrivate(ip) {
			return fmt.Errorf("address %s is private", ip)
		}
		return nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, ip := range addrs {
		if !isPrivate(ip) {
			return nil
		}
	}
	return fmt.Errorf("host %s resolves only to private addresses", host)
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// Fetcher retrieves snapshots.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with validation on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves a snapshot and probes it for an embedded payload.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchsnap: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchsnap: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return &Result{StatusCode: resp.StatusCode}, fmt.Errorf("fetchsnap: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("fetchsnap: read body: %w", err)
	}

	text := string(body)
	_, locErr := payload.Locate(text)
	h := sha256.Sum256(body)
	return &Result{
		Body:       text,
		StatusCode: resp.StatusCode,
		Hash:       fmt.Sprintf("%x", h),
		HasPayload: locErr == nil,
	}, nil
}
