// Package decode turns raw feed payloads into per-format raw records. Each
// decoder is a leaf: it knows one wire format and nothing about fetching,
// normalization, or snapshots. Decode failures are per-feed and never abort
// the aggregation cycle.
package decode

import "fmt"

// Error is a malformed-payload failure for one feed.
type Error struct {
	Feed string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %s: malformed payload: %v", e.Feed, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
