package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/ErenCAkpinar/quant-stock-fetcher/internal/types"
)

// DataGenerator generates realistic raw provider tables for testing.
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

// GeneratorConfig configures how a raw table is generated.
type GeneratorConfig struct {
	// Symbol is the ticker written into two level headers
	Symbol string
	// StartTime is the first index timestamp. Its location is kept on every row.
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of rows to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// MultiLevel emits ("Close", Symbol) style headers instead of ("Close").
	MultiLevel bool
	// OmitAdjClose leaves out the "Adj Close" column, like yahoo intraday charts.
	OmitAdjClose bool
	// OmitVolume leaves out the "Volume" column.
	OmitVolume bool
}

// DefaultConfig returns a sensible default configuration: 30 daily bars in New York time.
func DefaultConfig() GeneratorConfig {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		newYork = time.FixedZone("EST", -5*3600)
	}

	return GeneratorConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 2, 0, 0, 0, 0, newYork),
		Interval:     24 * time.Hour,
		Count:        30,
		InitialPrice: 100.0,
		Volatility:   0.01,
		VolumeBase:   1_000_000,
	}
}

// Generate creates a yahoo shaped raw table ("Date" index, "Open".."Volume" columns).
// Prices follow a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) *types.RawTable {
	index := make([]time.Time, config.Count)
	open := make([]any, config.Count)
	high := make([]any, config.Count)
	low := make([]any, config.Count)
	closes := make([]any, config.Count)
	adjClose := make([]any, config.Count)
	volume := make([]any, config.Count)

	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		o := currentPrice

		// Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		c := o * (1 + config.Volatility*z)
		if c <= 0 {
			c = o * 0.99 // Prevent negative prices
		}

		h := math.Max(o, c) + math.Abs(g.rng.Float64()*config.Volatility*o*0.5)
		l := math.Min(o, c) - math.Abs(g.rng.Float64()*config.Volatility*o*0.5)
		if l <= 0 {
			l = math.Min(o, c) * 0.99
		}

		index[i] = currentTime
		open[i] = roundToDecimals(o, 4)
		high[i] = roundToDecimals(h, 4)
		low[i] = roundToDecimals(l, 4)
		closes[i] = roundToDecimals(c, 4)
		adjClose[i] = roundToDecimals(c*0.98, 4)
		volume[i] = math.Round(config.VolumeBase * (0.7 + g.rng.Float64()*0.6))

		currentPrice = c
		currentTime = currentTime.Add(config.Interval)
	}

	header := func(field string) []string {
		if config.MultiLevel {
			return []string{field, config.Symbol}
		}

		return []string{field}
	}

	columns := []types.RawColumn{
		{Header: header("Open"), Values: open},
		{Header: header("High"), Values: high},
		{Header: header("Low"), Values: low},
		{Header: header("Close"), Values: closes},
	}

	if !config.OmitAdjClose {
		columns = append(columns, types.RawColumn{Header: header("Adj Close"), Values: adjClose})
	}

	if !config.OmitVolume {
		columns = append(columns, types.RawColumn{Header: header("Volume"), Values: volume})
	}

	return &types.RawTable{
		IndexName:  "Date",
		Index:      index,
		FieldLevel: 0,
		Columns:    columns,
	}
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
