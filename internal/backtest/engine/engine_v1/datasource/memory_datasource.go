package datasource

import (
	"github.com/aerucodes/emacross/internal/types"
)

// MemoryBarSource serves a pre-materialized bar slice. Used by tests and by
// callers that already hold bars in memory.
type MemoryBarSource struct {
	symbol string
	bars   []types.Bar
}

// NewMemoryBarSource creates an in-memory source. The bars are validated the
// same way a CSV file would be.
func NewMemoryBarSource(symbol string, bars []types.Bar) (*MemoryBarSource, error) {
	if err := validateSequence(bars); err != nil {
		return nil, err
	}

	return &MemoryBarSource{symbol: symbol, bars: bars}, nil
}

// Initialize implements BarSource. The path is ignored; the bars were
// provided at construction.
func (s *MemoryBarSource) Initialize(path string) error {
	return nil
}

// ReadAll implements BarSource.
func (s *MemoryBarSource) ReadAll() func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range s.bars {
			if !yield(bar, nil) {
				break
			}
		}
	}
}

// Count implements BarSource.
func (s *MemoryBarSource) Count() (int, error) {
	return len(s.bars), nil
}

// Symbol implements BarSource.
func (s *MemoryBarSource) Symbol() string {
	return s.symbol
}

// Close implements BarSource.
func (s *MemoryBarSource) Close() error {
	s.bars = nil

	return nil
}
