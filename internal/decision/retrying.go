package decision

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pattern-lab/formation-trading/internal/logger"
	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Retrying decorates a Source with bounded retries for transient
// failures. Once the attempts are exhausted the wrapped error is
// returned; the simulator then treats the day as "no signal".
type Retrying struct {
	inner    Source
	attempts int
	delay    time.Duration
	logger   *logger.Logger
}

var _ Source = (*Retrying)(nil)

// NewRetrying wraps inner with up to attempts tries, sleeping delay
// between them. Attempts below 1 default to 3.
func NewRetrying(inner Source, attempts int, delay time.Duration, log *logger.Logger) *Retrying {
	if attempts < 1 {
		attempts = 3
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Retrying{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		logger:   log,
	}
}

// Name implements Source.
func (s *Retrying) Name() string {
	return s.inner.Name()
}

// Decide retries the inner source until it succeeds, the context is
// cancelled, or the attempts run out.
func (s *Retrying) Decide(ctx context.Context, req Request) (types.Decision, error) {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		decision, err := s.inner.Decide(ctx, req)
		if err == nil {
			return decision, nil
		}

		lastErr = err
		s.logger.Warn("decision source failed",
			zap.String("source", s.inner.Name()),
			zap.String("instrument", req.Instrument),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == s.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return types.Decision{}, errors.Wrap(errors.ErrCodeDecisionExhausted, "decision cancelled", ctx.Err())
		case <-time.After(s.delay):
		}
	}

	return types.Decision{}, errors.Wrapf(errors.ErrCodeDecisionExhausted, lastErr,
		"decision source %s failed after %d attempts", s.inner.Name(), s.attempts)
}
