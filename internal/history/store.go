// Package history holds the in-memory, append-only price series the whole
// engine reads from. Every query takes an as-of cutoff so no caller can see
// bars dated after its simulated day.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// Provider is the external market data collaborator the store can load from.
type Provider interface {
	// GetBars returns bars for one instrument, none dated after end.
	// Implementations must fail explicitly when fewer than their minimum
	// required bars are available, not silently truncate.
	GetBars(ctx context.Context, instrument string, end time.Time, lookbackDays int) ([]types.Bar, error)
}

// Store provides indexed access to per-instrument daily bars. Bars are
// preloaded or appended in chronological order and served from arrays for
// O(1) window slicing, with a per-instrument time index for exact-date
// lookups.
type Store struct {
	// bars[instrument][i] is the i-th bar in chronological order.
	bars map[string][]types.Bar

	// dateIndex[instrument][unix-day] = bar index.
	dateIndex map[string]map[int64]int

	mu sync.RWMutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		bars:      make(map[string][]types.Bar),
		dateIndex: make(map[string]map[int64]int),
		mu:        sync.RWMutex{},
	}
}

func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// Append adds one bar to the series. Bars must arrive in strictly
// increasing date order per instrument; duplicates and out-of-order bars
// are rejected.
func (s *Store) Append(bar types.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.bars[bar.Instrument]

	idx, ok := s.dateIndex[bar.Instrument]
	if !ok {
		idx = make(map[int64]int)
		s.dateIndex[bar.Instrument] = idx
	}

	key := dayKey(bar.Date)
	if _, exists := idx[key]; exists {
		return errors.Newf(errors.ErrCodeDuplicateBar,
			"duplicate bar for %s on %s", bar.Instrument, bar.Date.Format("2006-01-02"))
	}

	if len(series) > 0 && !series[len(series)-1].Date.Before(bar.Date) {
		return errors.Newf(errors.ErrCodeOutOfOrderBar,
			"bar for %s on %s arrived after %s", bar.Instrument,
			bar.Date.Format("2006-01-02"), series[len(series)-1].Date.Format("2006-01-02"))
	}

	idx[key] = len(series)
	s.bars[bar.Instrument] = append(series, bar)

	return nil
}

// LoadFrom appends an instrument's history fetched from the provider.
func (s *Store) LoadFrom(ctx context.Context, provider Provider, instrument string, end time.Time, lookbackDays int) error {
	bars, err := provider.GetBars(ctx, instrument, end, lookbackDays)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeProviderFailed, err,
			"failed to load bars for %s", instrument)
	}

	for _, bar := range bars {
		if err := s.Append(bar); err != nil {
			return err
		}
	}

	return nil
}

// WindowEndingAt returns the last n bars for instrument dated at or before
// asOf, in chronological order. Returns InsufficientDataError when fewer
// than n bars exist before the cutoff.
func (s *Store) WindowEndingAt(instrument string, asOf time.Time, n int) ([]types.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.bars[instrument]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownInstrument, "no bars loaded for %s", instrument)
	}

	cut := s.cutoff(series, asOf)
	if cut < n {
		return nil, errors.NewInsufficientDataErrorf(n, cut, instrument,
			"%s: need %d bars before cutoff, have %d", instrument, n, cut)
	}

	window := make([]types.Bar, n)
	copy(window, series[cut-n:cut])

	return window, nil
}

// AllUpTo returns every bar for instrument dated at or before asOf.
func (s *Store) AllUpTo(instrument string, asOf time.Time) ([]types.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.bars[instrument]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownInstrument, "no bars loaded for %s", instrument)
	}

	cut := s.cutoff(series, asOf)
	all := make([]types.Bar, cut)
	copy(all, series[:cut])

	return all, nil
}

// BarOn returns the exact bar for instrument on date, if one exists.
func (s *Store) BarOn(instrument string, date time.Time) (types.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.dateIndex[instrument]
	if !ok {
		return types.Bar{}, false
	}

	i, ok := idx[dayKey(date)]
	if !ok {
		return types.Bar{}, false
	}

	return s.bars[instrument][i], true
}

// Len returns the number of bars stored for instrument.
func (s *Store) Len(instrument string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bars[instrument])
}

// Instruments returns all instruments with at least one bar, sorted.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.bars))
	for name := range s.bars {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// TradingDays returns the sorted union of bar dates across all instruments
// within [start, end].
func (s *Store) TradingDays(start, end time.Time) []time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]time.Time)

	for _, series := range s.bars {
		for _, bar := range series {
			if bar.Date.Before(start) || bar.Date.After(end) {
				continue
			}

			seen[dayKey(bar.Date)] = bar.Date
		}
	}

	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	return days
}

// Truncate returns a copy of the store containing only bars dated at or
// before cutoff. Used by the no-lookahead replay test.
func (s *Store) Truncate(cutoff time.Time) *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := NewStore()

	for _, series := range s.bars {
		cut := s.cutoff(series, cutoff)
		for _, bar := range series[:cut] {
			// Bars are already ordered and unique, Append cannot fail.
			_ = out.Append(bar)
		}
	}

	return out
}

// cutoff returns the count of bars dated at or before asOf.
// Callers must hold at least a read lock.
func (s *Store) cutoff(series []types.Bar, asOf time.Time) int {
	return sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(asOf)
	})
}
