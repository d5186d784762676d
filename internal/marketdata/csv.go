package marketdata

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pattern-lab/formation-trading/internal/types"
	"github.com/pattern-lab/formation-trading/pkg/errors"
)

const csvDateLayout = "2006-01-02"

// CSVProvider serves bars from a directory of per-instrument CSV files
// named <instrument>.csv with a header row of
// date,open,high,low,close,volume.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider reading from dir.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// GetBars implements Provider.
func (p *CSVProvider) GetBars(_ context.Context, instrument string, end time.Time, lookbackDays int) ([]types.Bar, error) {
	path := filepath.Join(p.dir, instrument+".csv")

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "no data file for %s", instrument)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read header of %s", path)
	}

	if len(header) < 6 {
		return nil, errors.Newf(errors.ErrCodeDataParseFailed,
			"%s: expected 6 columns (date,open,high,low,close,volume), got %d", path, len(header))
	}

	start := end.AddDate(0, 0, -lookbackDays)

	var bars []types.Bar

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read row of %s", path)
		}

		bar, err := parseRecord(instrument, record)
		if err != nil {
			return nil, err
		}

		if bar.Date.After(end) || bar.Date.Before(start) {
			continue
		}

		bars = append(bars, bar)
	}

	if len(bars) < MinRequiredBars {
		return nil, errors.NewInsufficientDataErrorf(MinRequiredBars, len(bars), instrument,
			"%s: %d bars available in range, need at least %d", instrument, len(bars), MinRequiredBars)
	}

	return bars, nil
}

func parseRecord(instrument string, record []string) (types.Bar, error) {
	if len(record) < 6 {
		return types.Bar{}, errors.Newf(errors.ErrCodeDataParseFailed,
			"%s: short row with %d columns", instrument, len(record))
	}

	date, err := time.Parse(csvDateLayout, record[0])
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err,
			"%s: bad date %q", instrument, record[0])
	}

	fields := make([]float64, 5)

	for i, raw := range record[1:6] {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err,
				"%s: bad numeric field %q", instrument, raw)
		}

		fields[i] = value
	}

	return types.Bar{
		Instrument: instrument,
		Date:       date,
		Open:       fields[0],
		High:       fields[1],
		Low:        fields[2],
		Close:      fields[3],
		Volume:     fields[4],
	}, nil
}
