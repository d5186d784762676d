// Package cache memoizes validation results. A validation outcome is
// a pure function of its key, so entries never need invalidation for
// correctness, only for memory pressure.
package cache

import (
	"context"

	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Cache stores validation results keyed by content hash.
type Cache interface {
	// Get returns the cached result for key, or None on a miss.
	Get(ctx context.Context, key string) (optional.Option[types.ValidationResult], error)
	// Set stores the result under key.
	Set(ctx context.Context, key string, result types.ValidationResult) error
	// Reset drops all entries.
	Reset(ctx context.Context) error
}
