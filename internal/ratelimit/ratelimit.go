// Package ratelimit provides the secondary short-window limiter applied to
// publish attempts. It is keyed independently of the daily quota and windows
// on minutes, not hours.
package ratelimit

import "context"

// Limiter decides whether an action keyed by identity+action may proceed
// within the current short window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
