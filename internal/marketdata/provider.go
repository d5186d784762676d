// Package marketdata implements the market data provider collaborators the
// engine loads price history from.
package marketdata

import (
	"context"
	"time"

	"github.com/pattern-lab/formation-trading/internal/types"
)

// MinRequiredBars is the smallest history a provider may hand back without
// failing. Shorter series cannot fill a single detection window, so
// returning them would only hide a data problem until detection time.
const MinRequiredBars = 30

// Provider fetches daily bars for one instrument. Implementations must
// never return a bar dated after end, and must fail explicitly (not
// silently truncate) when fewer than MinRequiredBars are available.
type Provider interface {
	GetBars(ctx context.Context, instrument string, end time.Time, lookbackDays int) ([]types.Bar, error)
}

// OnDownloadProgress reports provider download progress to the caller.
type OnDownloadProgress func(current float64, total float64, message string)
