package extractor

import "errors"

// Error taxonomy surfaced to callers. Each extraction failure maps to one
// of these sentinels; the cause is wrapped alongside.
var (
	// ErrNotFound: no recognizable payload or conversation structure in
	// the input.
	ErrNotFound = errors.New("extractor: no conversation payload found")

	// ErrFormat: a payload was located but could not be decoded or parsed.
	ErrFormat = errors.New("extractor: payload present but undecodable")

	// ErrNetwork: a live page could not be reached or rendered.
	ErrNetwork = errors.New("extractor: page unreachable or render failed")

	// ErrNoMessages: the page or payload was processed but yielded zero
	// messages after filtering.
	ErrNoMessages = errors.New("extractor: no messages extracted")
)
