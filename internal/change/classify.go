package change

import (
	"fmt"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
)

type Class uint8

const (
	ClassNull       Class = 0
	ClassIndexOnly  Class = 3
	ClassNoClearing Class = 10
	Class34         Class = 34
	Class35         Class = 35
	Class36         Class = 36
	Class37         Class = 37
	Class38         Class = 38
	Class39         Class = 39
)

// Classes lists every value a change class raster can hold.
var Classes = []Class{ClassNull, ClassIndexOnly, ClassNoClearing, Class34, Class35, Class36, Class37, Class38, Class39}

func (c Class) String() string {
	switch c {
	case ClassNull:
		return "null"
	case ClassIndexOnly:
		return "index-only change"
	case ClassNoClearing:
		return "no clearing"
	}
	if c >= Class34 && c <= Class39 {
		return fmt.Sprintf("clearing %d", c)
	}
	return fmt.Sprintf("unknown %d", uint8(c))
}

// LowStartThreshold is the normalized start value under which a pixel is
// treated as already bare.
const LowStartThreshold = 108

// Index-only gate: tTest above IndexOnlyTTest and -indexTrend*stderr above
// IndexOnlyTrendStdErr.
const (
	IndexOnlyTTest       = -1.70
	IndexOnlyTrendStdErr = 740.0
)

type threshold struct {
	class    Class
	combined float64
	sTest    float64
	spectral float64
}

// clearingThresholds is ordered from the strongest class down. Class 34 is
// gated on the combined index alone.
var clearingThresholds = []threshold{
	{Class39, 58.10, -2.34, -2.27},
	{Class38, 47.05, -1.55, -1.84},
	{Class37, 39.54, -1.01, -1.50},
	{Class36, 33.40, -0.60, -1.19},
	{Class35, 27.71, -0.27, -0.86},
}

const class34Combined = 21.80

// Pixel holds the measures a single classification decision depends on.
type Pixel struct {
	Start      uint8
	IndexTrend float64
	STest      float64
	TTest      float64
	StdErr     float64
	Spectral   float64
	Combined   float64
}

// ClassifyPixel decides the class of one valid pixel. Gates are checked in
// order: low start, index-only change, then the clearing table.
func ClassifyPixel(p Pixel, omitStartThreshold bool) Class {
	if !omitStartThreshold && p.Start < LowStartThreshold {
		return ClassNoClearing
	}
	if p.TTest > IndexOnlyTTest && -p.IndexTrend*p.StdErr > IndexOnlyTrendStdErr {
		return ClassIndexOnly
	}
	for _, t := range clearingThresholds {
		if p.Combined > t.combined && p.STest < t.sTest && p.Spectral < t.spectral {
			return t.class
		}
	}
	if p.Combined > class34Combined {
		return Class34
	}
	return ClassNoClearing
}

func (m *Metrics) pixel(i int) Pixel {
	return Pixel{
		Start:      m.Start.Data[i],
		IndexTrend: m.IndexTrend.Data[i],
		STest:      m.STest.Data[i],
		TTest:      m.TTest.Data[i],
		StdErr:     m.StdErr.Data[i],
		Spectral:   m.SpectralIndex.Data[i],
		Combined:   m.CombinedIndex.Data[i],
	}
}

type ClassifyOptions struct {
	OmitStartThreshold bool
	// Footprint, when set, nulls every pixel outside it.
	Footprint *raster.Mask
	Workers   int
}

// Classify builds the change class raster. Invalid pixels and pixels outside
// the footprint are ClassNull; every other pixel gets exactly one class.
func Classify(m *Metrics, opts ClassifyOptions) (raster.ByteBand, error) {
	if fp := opts.Footprint; fp != nil {
		if err := checkShape(m.Rows, m.Cols, "footprint", fp.Rows, fp.Cols); err != nil {
			return raster.ByteBand{}, err
		}
	}

	out := raster.NewByteBand(m.Rows, m.Cols)
	utils.ForEachRowBlock(m.Rows, opts.Workers, func(rowStart, rowEnd int) {
		for i := rowStart * m.Cols; i < rowEnd*m.Cols; i++ {
			if !m.Valid.Data[i] {
				continue
			}
			if opts.Footprint != nil && !opts.Footprint.Data[i] {
				continue
			}
			out.Data[i] = uint8(ClassifyPixel(m.pixel(i), opts.OmitStartThreshold))
		}
	})
	return out, nil
}

// CountClasses tallies the pixels of each class present in a class raster.
func CountClasses(classes raster.ByteBand) map[Class]int {
	counts := make(map[Class]int)
	for _, v := range classes.Data {
		counts[Class(v)]++
	}
	return counts
}
