package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/aerucodes/emacross/internal/types"
)

// DataGenerator generates market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "AAPL", "SPY")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the total drift over the whole series (-1.0 to 1.0)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultGeneratorConfig returns a sensible default configuration: one year
// of daily bars.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     24 * time.Hour,
		Count:        252,
		InitialPrice: 100.0,
		Volatility:   0.01,
		Trend:        0.0,
		VolumeBase:   10000,
	}
}

// GenerateFlat creates bars whose close never moves. Useful for asserting
// that no crossover ever fires.
func (g *DataGenerator) GenerateFlat(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		bars[i] = types.Bar{
			Time:   currentTime,
			Symbol: config.Symbol,
			Open:   config.InitialPrice,
			High:   config.InitialPrice,
			Low:    config.InitialPrice,
			Close:  config.InitialPrice,
			Volume: config.VolumeBase,
		}
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// GenerateLinear creates bars whose close moves in a straight line from
// InitialPrice to InitialPrice*(1+Trend). A positive trend produces exactly
// one golden cross once both averages are seeded.
func (g *DataGenerator) GenerateLinear(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentTime := config.StartTime
	final := config.InitialPrice * (1 + config.Trend)

	for i := 0; i < config.Count; i++ {
		progress := 0.0
		if config.Count > 1 {
			progress = float64(i) / float64(config.Count-1)
		}

		close := roundToDecimals(config.InitialPrice+(final-config.InitialPrice)*progress, 4)

		bars[i] = types.Bar{
			Time:   currentTime,
			Symbol: config.Symbol,
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: config.VolumeBase,
		}
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// Generate creates bars following a geometric Brownian motion model.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal draw.
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension

		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		bars[i] = types.Bar{
			Time:   currentTime,
			Symbol: config.Symbol,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(config.VolumeBase, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// WriteCSV writes bars to a CSV file with a header row in the format the CSV
// bar source reads.
func WriteCSV(path string, bars []types.Bar) error {
	var builder strings.Builder

	builder.WriteString("date,open,high,low,close,volume\n")

	for _, bar := range bars {
		builder.WriteString(fmt.Sprintf("%s,%g,%g,%g,%g,%g\n",
			bar.Time.Format("2006-01-02"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume))
	}

	return os.WriteFile(path, []byte(builder.String()), 0644)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
