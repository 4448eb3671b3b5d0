// Package cache provides the cart summary cache. Summaries are cached per
// customer under the current catalog version with a jittered TTL. Cart
// mutations invalidate the customer's entry; catalog writes bump the version
// so every entry misses and the next read sees current prices.
package cache

import "github.com/go-faster/errors"

// ErrMiss is returned when the requested key is not cached.
var ErrMiss = errors.New("cache miss")
