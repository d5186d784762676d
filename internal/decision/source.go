// Package decision hosts the pluggable decision sources the simulator
// consults before entering a position. A source is an opaque, possibly
// slow, possibly failing collaborator; its failures are recovered by
// the caller as "no signal", never by corrupting portfolio state.
package decision

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// Request carries everything a source may consider for one instrument
// on one day. The snapshots are opaque text blobs supplied by outer
// tooling; the engine never interprets them.
type Request struct {
	Instrument   string
	AsOf         time.Time
	Formation    optional.Option[types.Formation]
	Validation   optional.Option[types.ValidationResult]
	Fundamentals optional.Option[string]
	Sentiment    optional.Option[string]
}

// Source produces a trading decision for a request.
type Source interface {
	Name() string
	Decide(ctx context.Context, req Request) (types.Decision, error)
}
