package change

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/baseline"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/timeseries"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
)

// Legacy spectral index weights, applied to ln(1+x) of reflectance bands
// 2, 3, 5 and 6 of the start and end stacks.
var (
	spectralBands     = [4]int{1, 2, 4, 5}
	spectralStartCoef = [4]float64{0.77801094, 1.7713253, 2.0714311, 2.5403550}
	spectralEndCoef   = [4]float64{-0.2996241, -0.5447928, -2.2842536, -4.0177752}
)

// Legacy combined index weights.
const (
	WeightSpectral   = -11.972499
	WeightIndexTrend = -0.40357223
	WeightTTest      = -5.2609715
	WeightSTest      = -4.3794265
)

// Clearing probability curve: 200 * (1 - exp(-(K*combined)^P)).
const (
	ProbabilityScale = 200.0
	ProbabilityK     = 0.01227
	ProbabilityP     = 3.18975
)

// MinDeviation is the smallest baseline std/stderr a deviation test is
// computed against.
const MinDeviation = 0.2

// RequiredReflectanceBands is the band count a stack needs for the spectral
// index.
const RequiredReflectanceBands = 6

var ErrTooFewBands = errors.New("reflectance stack has too few bands")

type MetricInputs struct {
	Start      raster.ByteBand
	End        raster.ByteBand
	EndDate    time.Time
	Statistics *timeseries.Statistics
	StartStack raster.ReflectanceStack
	EndStack   raster.ReflectanceStack
	Workers    int
}

// Metrics are the per-pixel change measures. A metric value of 0 is
// legitimate, so validity is carried by Valid only.
type Metrics struct {
	Rows int
	Cols int

	SpectralIndex       raster.Band
	IndexTrend          raster.Band
	STest               raster.Band
	TTest               raster.Band
	CombinedIndex       raster.Band
	ClearingProbability raster.Band

	// Start and StdErr are kept for the classification gates.
	Start  raster.ByteBand
	StdErr raster.Band

	Valid raster.Mask

	// Degenerate counts pixels with complete inputs whose baseline could not
	// support the deviation tests.
	Degenerate int
}

func checkShape(rows, cols int, what string, r, c int) error {
	if r != rows || c != cols {
		return &raster.GridMismatchError{Reason: fmt.Sprintf("%s is %dx%d, expected %dx%d", what, c, r, cols, rows)}
	}
	return nil
}

func (in MetricInputs) validate() error {
	if in.Statistics == nil {
		return errors.New("baseline statistics are required")
	}
	rows, cols := in.Statistics.Rows, in.Statistics.Cols
	if err := checkShape(rows, cols, "start image", in.Start.Rows, in.Start.Cols); err != nil {
		return err
	}
	if err := checkShape(rows, cols, "end image", in.End.Rows, in.End.Cols); err != nil {
		return err
	}
	for _, s := range []struct {
		name  string
		stack raster.ReflectanceStack
	}{{"start reflectance", in.StartStack}, {"end reflectance", in.EndStack}} {
		if len(s.stack.Bands) < RequiredReflectanceBands {
			return fmt.Errorf("%s has %d bands, need %d: %w", s.name, len(s.stack.Bands), RequiredReflectanceBands, ErrTooFewBands)
		}
		if err := checkShape(rows, cols, s.name, s.stack.Rows(), s.stack.Cols()); err != nil {
			return err
		}
	}
	return nil
}

// ComputeMetrics derives the spectral, trend and deviation measures and the
// combined score at every pixel. Any missing contributing input leaves the
// pixel invalid with every metric 0.
func ComputeMetrics(in MetricInputs) (*Metrics, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	stats := in.Statistics
	rows, cols := stats.Rows, stats.Cols
	endYear := baseline.DecimalYear(in.EndDate)

	m := &Metrics{
		Rows:                rows,
		Cols:                cols,
		SpectralIndex:       raster.NewBand(rows, cols),
		IndexTrend:          raster.NewBand(rows, cols),
		STest:               raster.NewBand(rows, cols),
		TTest:               raster.NewBand(rows, cols),
		CombinedIndex:       raster.NewBand(rows, cols),
		ClearingProbability: raster.NewBand(rows, cols),
		Start:               in.Start,
		StdErr:              stats.StdErr,
		Valid:               raster.NewMask(rows, cols, false),
	}

	degenerate := make([]int, rows)
	utils.ForEachRowBlock(rows, in.Workers, func(rowStart, rowEnd int) {
		for i := rowStart * cols; i < rowEnd*cols; i++ {
			start, end := in.Start.Data[i], in.End.Data[i]
			if start == raster.NoData || end == raster.NoData {
				continue
			}
			if !stackValid(in.StartStack, i) || !stackValid(in.EndStack, i) {
				continue
			}
			spectral := spectralIndex(in.StartStack, in.EndStack, i)
			if !stats.Valid.Data[i] || stats.Std.Data[i] < MinDeviation || stats.StdErr.Data[i] < MinDeviation {
				degenerate[i/cols]++
				continue
			}

			observed := float64(end)
			trend := observed - float64(start)
			sTest := (observed - stats.Predict(i, endYear)) / stats.StdErr.Data[i]
			tTest := (observed - stats.Mean.Data[i]) / stats.Std.Data[i]
			combined := CombinedIndex(spectral, trend, tTest, sTest)

			m.SpectralIndex.Data[i] = spectral
			m.IndexTrend.Data[i] = trend
			m.STest.Data[i] = sTest
			m.TTest.Data[i] = tTest
			m.CombinedIndex.Data[i] = combined
			m.ClearingProbability.Data[i] = ClearingProbability(combined)
			m.Valid.Data[i] = true
		}
	})

	for _, n := range degenerate {
		m.Degenerate += n
	}
	return m, nil
}

// stackValid reports whether every band of s holds data at pixel i.
func stackValid(s raster.ReflectanceStack, i int) bool {
	for _, b := range s.Bands {
		if v := b.Data[i]; v == raster.NoData || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// spectralIndex evaluates the legacy log-weighted band difference at pixel i.
func spectralIndex(start, end raster.ReflectanceStack, i int) float64 {
	var v float64
	for k, b := range spectralBands {
		v += spectralStartCoef[k]*math.Log1p(start.Bands[b].Data[i]) + spectralEndCoef[k]*math.Log1p(end.Bands[b].Data[i])
	}
	return v
}

func CombinedIndex(spectral, trend, tTest, sTest float64) float64 {
	return WeightSpectral*spectral + WeightIndexTrend*trend + WeightTTest*tTest + WeightSTest*sTest
}

// ClearingProbability maps a combined index onto [0, 200]; non-positive
// scores have zero probability.
func ClearingProbability(combined float64) float64 {
	if combined <= 0 {
		return 0
	}
	p := math.Round(ProbabilityScale * (1 - math.Exp(-math.Pow(ProbabilityK*combined, ProbabilityP))))
	return math.Max(0, math.Min(255, p))
}
