package cache

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Memory is an in-process Cache. The zero value is not usable; use
// NewMemory.
type Memory struct {
	entries map[string]types.ValidationResult
	mu      sync.RWMutex
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]types.ValidationResult),
	}
}

// Get returns the cached result for key, or None on a miss.
func (c *Memory) Get(_ context.Context, key string) (optional.Option[types.ValidationResult], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result, exists := c.entries[key]
	if !exists {
		return optional.None[types.ValidationResult](), nil
	}

	return optional.Some(result), nil
}

// Set stores the result under key.
func (c *Memory) Set(_ context.Context, key string, result types.ValidationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = result

	return nil
}

// Reset drops all entries.
func (c *Memory) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]types.ValidationResult)

	return nil
}
