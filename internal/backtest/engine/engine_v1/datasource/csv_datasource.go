package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aerucodes/emacross/internal/types"
	"github.com/aerucodes/emacross/pkg/errors"
)

// dateLayouts are the accepted formats for the date column, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// CSVBarSource reads OHLCV bars from a CSV file with columns
// date,open,high,low,close,volume. A header row is optional. The whole file is
// loaded and validated at Initialize so that iteration is restartable and a
// bad file fails before any ledger mutation.
type CSVBarSource struct {
	symbol string
	path   string
	cache  []types.Bar
}

// NewCSVBarSource creates a CSV bar source for the given symbol.
func NewCSVBarSource(symbol string) *CSVBarSource {
	return &CSVBarSource{symbol: symbol}
}

// Initialize implements BarSource.
func (s *CSVBarSource) Initialize(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataReadFailed, err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	bars := make([]types.Bar, 0)
	row := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return errors.Wrapf(errors.ErrCodeDataReadFailed, err, "failed to read %s", path)
		}

		row++

		if len(record) < 6 {
			return errors.Newf(errors.ErrCodeMalformedBar, "row %d has %d columns, want at least 6", row, len(record))
		}

		date, ok := parseDate(record[0])
		if !ok {
			// Allow a single header row at the top of the file.
			if row == 1 {
				continue
			}

			return errors.Newf(errors.ErrCodeMalformedBar, "row %d has unparseable date %q", row, record[0])
		}

		bar := types.Bar{
			Time:   date,
			Symbol: s.symbol,
		}

		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, dst := range fields {
			value, err := strconv.ParseFloat(record[i+1], 64)
			if err != nil {
				return errors.Wrapf(errors.ErrCodeMalformedBar, err, "row %d column %d is not numeric", row, i+2)
			}

			*dst = value
		}

		bars = append(bars, bar)
	}

	if err := validateSequence(bars); err != nil {
		return err
	}

	s.path = path
	s.cache = bars

	return nil
}

// ReadAll implements BarSource.
func (s *CSVBarSource) ReadAll() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		if s.cache == nil {
			yield(types.Bar{}, errors.New(errors.ErrCodeNoDataFound, "source not initialized"))

			return
		}

		for _, bar := range s.cache {
			if !yield(bar, nil) {
				break
			}
		}
	}
}

// Count implements BarSource.
func (s *CSVBarSource) Count() (int, error) {
	if s.cache == nil {
		return 0, errors.New(errors.ErrCodeNoDataFound, "source not initialized")
	}

	return len(s.cache), nil
}

// Symbol implements BarSource.
func (s *CSVBarSource) Symbol() string {
	return s.symbol
}

// Close implements BarSource.
func (s *CSVBarSource) Close() error {
	s.cache = nil

	return nil
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
