package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

// PolygonProvider fetches daily aggregates from polygon.io.
type PolygonProvider struct {
	client     *polygon.Client
	onProgress OnDownloadProgress
}

// NewPolygonProvider creates a Provider backed by the polygon REST API.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "polygon api key is required")
	}

	return &PolygonProvider{
		client:     polygon.New(apiKey),
		onProgress: nil,
	}, nil
}

// SetProgressCallback registers an optional download progress callback.
func (p *PolygonProvider) SetProgressCallback(cb OnDownloadProgress) {
	p.onProgress = cb
}

// GetBars implements Provider using 1-day aggregates.
func (p *PolygonProvider) GetBars(ctx context.Context, instrument string, end time.Time, lookbackDays int) ([]types.Bar, error) {
	start := end.AddDate(0, 0, -lookbackDays)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     instrument,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()

		date := time.Time(agg.Timestamp).UTC().Truncate(24 * time.Hour)
		if date.After(end) {
			continue
		}

		bars = append(bars, types.Bar{
			Instrument: instrument,
			Date:       date,
			Open:       agg.Open,
			High:       agg.High,
			Low:        agg.Low,
			Close:      agg.Close,
			Volume:     agg.Volume,
		})

		if p.onProgress != nil {
			p.onProgress(float64(len(bars)), float64(lookbackDays), instrument)
		}
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeProviderFailed, iter.Err(),
			"polygon aggregates failed for %s", instrument)
	}

	if len(bars) < MinRequiredBars {
		return nil, errors.NewInsufficientDataErrorf(MinRequiredBars, len(bars), instrument,
			"%s: polygon returned %d bars, need at least %d", instrument, len(bars), MinRequiredBars)
	}

	return bars, nil
}
