package change

import (
	"fmt"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"gonum.org/v1/gonum/stat"
)

// Interpretation band names, in band order.
var InterpretationBands = []string{"spectralIndex", "sTest", "combinedIndex", "clearingProb"}

// Half-widths, in standard deviations, of the display stretch of each
// interpretation band.
const (
	SpectralStretchStdDevs = 2
	STestStretchStdDevs    = 10
	CombinedStretchStdDevs = 10
)

// Interpretation is the four band display raster accompanying the class
// raster.
type Interpretation struct {
	SpectralIndex       raster.ByteBand
	DeviationTest       raster.ByteBand
	CombinedIndex       raster.ByteBand
	ClearingProbability raster.ByteBand
}

func (in Interpretation) Bands() []raster.ByteBand {
	return []raster.ByteBand{in.SpectralIndex, in.DeviationTest, in.CombinedIndex, in.ClearingProbability}
}

// StretchStats are the mean and standard deviation a band was stretched with.
type StretchStats struct {
	Mean float64
	Std  float64
}

func (s StretchStats) String() string {
	return fmt.Sprintf("mean %.4f std %.4f", s.Mean, s.Std)
}

// Interpret stretches the spectral, sTest and combined metrics into [1, 255]
// using each metric's mean and standard deviation over the classified pixels,
// and carries the clearing probability through. Pixels with class 0 are 0 in
// every band.
func Interpret(m *Metrics, classes raster.ByteBand) (Interpretation, map[string]StretchStats, error) {
	if err := checkShape(m.Rows, m.Cols, "class raster", classes.Rows, classes.Cols); err != nil {
		return Interpretation{}, nil, err
	}

	out := Interpretation{
		SpectralIndex:       raster.NewByteBand(m.Rows, m.Cols),
		DeviationTest:       raster.NewByteBand(m.Rows, m.Cols),
		CombinedIndex:       raster.NewByteBand(m.Rows, m.Cols),
		ClearingProbability: raster.NewByteBand(m.Rows, m.Cols),
	}
	stats := map[string]StretchStats{
		InterpretationBands[0]: stretchBand(m.SpectralIndex, classes, SpectralStretchStdDevs, out.SpectralIndex),
		InterpretationBands[1]: stretchBand(m.STest, classes, STestStretchStdDevs, out.DeviationTest),
		InterpretationBands[2]: stretchBand(m.CombinedIndex, classes, CombinedStretchStdDevs, out.CombinedIndex),
	}
	for i, c := range classes.Data {
		if c == uint8(ClassNull) {
			continue
		}
		out.ClearingProbability.Data[i] = uint8(m.ClearingProbability.Data[i])
	}
	return out, stats, nil
}

func stretchBand(b raster.Band, classes raster.ByteBand, stdDevs float64, dst raster.ByteBand) StretchStats {
	values := make([]float64, 0, len(b.Data))
	for i, c := range classes.Data {
		if c != uint8(ClassNull) {
			values = append(values, b.Data[i])
		}
	}
	s := StretchStats{Mean: 0, Std: 1}
	if len(values) > 0 {
		s.Mean, s.Std = stat.PopMeanStdDev(values, nil)
		if s.Std == 0 {
			s.Std = 1
		}
	}

	for i, c := range classes.Data {
		if c == uint8(ClassNull) {
			continue
		}
		dst.Data[i] = Stretch(b.Data[i], s, stdDevs)
	}
	return s
}

// Stretch maps v linearly so that mean ± stdDevs·std spans [1, 255],
// clipping outside that range.
func Stretch(v float64, s StretchStats, stdDevs float64) uint8 {
	const lo, hi = 1.0, 255.0
	x := lo + (v-s.Mean+s.Std*stdDevs)*(hi-lo)/(s.Std*2*stdDevs)
	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	return uint8(x)
}
