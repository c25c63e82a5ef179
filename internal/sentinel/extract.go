package sentinel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

// IndexKind names the vegetation condition measure an index image carries.
type IndexKind string

const (
	IndexFPC  IndexKind = "fpc"
	IndexNDVI IndexKind = "ndvi"
)

var ErrUnknownIndexKind = errors.New("unknown index kind")

func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return IndexFPC, nil
	case IndexFPC, IndexNDVI:
		return k, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownIndexKind)
}

// IndexSource turns a raster read from disk into an index image.
type IndexSource interface {
	Extract(stack raster.ReflectanceStack) (raster.IndexImage, error)
}

// Default Landsat surface reflectance positions of red (B4) and near
// infrared (B5), zero-based.
const (
	DefaultRedBand = 3
	DefaultNIRBand = 4
)

// NDVI scaling: -1 maps to 0, 0 to NDVIZero and +1 to NDVIMax.
const (
	NDVIZero = 100.0
	NDVIMax  = 200.0
)

const minDenominator = 1e-9

// NDVIExtractor derives a scaled normalized difference from two bands of a
// reflectance stack.
type NDVIExtractor struct {
	RedBand int
	NIRBand int
}

func NewNDVIExtractor() NDVIExtractor {
	return NDVIExtractor{RedBand: DefaultRedBand, NIRBand: DefaultNIRBand}
}

func (e NDVIExtractor) Extract(stack raster.ReflectanceStack) (raster.IndexImage, error) {
	for _, b := range []int{e.RedBand, e.NIRBand} {
		if b < 0 || b >= len(stack.Bands) {
			return raster.IndexImage{}, fmt.Errorf("ndvi band %d not present in %s", b, stack)
		}
	}
	red, nir := stack.Bands[e.RedBand], stack.Bands[e.NIRBand]

	out := raster.NewBand(red.Rows, red.Cols)
	for i := range out.Data {
		out.Data[i] = ScaleNDVI(red.Data[i], nir.Data[i])
	}
	return raster.IndexImage{Date: stack.Date, Path: stack.Path, Band: out}, nil
}

// ScaleNDVI returns round(100 + 100*ndvi) clipped to [1, 200], or 0 when
// either input is no-data or the denominator vanishes.
func ScaleNDVI(red, nir float64) float64 {
	if red == raster.NoData || nir == raster.NoData || math.IsNaN(red) || math.IsNaN(nir) {
		return raster.NoData
	}
	den := nir + red
	if math.Abs(den) < minDenominator {
		return raster.NoData
	}
	v := math.Round(NDVIZero + NDVIZero*(nir-red)/den)
	return math.Max(1, math.Min(NDVIMax, v))
}

// PassThroughExtractor uses one band of a pre-computed condition image as
// is.
type PassThroughExtractor struct {
	Band int
}

func (e PassThroughExtractor) Extract(stack raster.ReflectanceStack) (raster.IndexImage, error) {
	if e.Band < 0 || e.Band >= len(stack.Bands) {
		return raster.IndexImage{}, fmt.Errorf("band %d not present in %s", e.Band, stack)
	}
	return raster.IndexImage{Date: stack.Date, Path: stack.Path, Band: stack.Bands[e.Band]}, nil
}

// SourceFor picks the extractor for a file of the given band count. Single
// band images already hold the index; multi-band images are reflectance
// stacks and only NDVI can be derived from them.
func SourceFor(kind IndexKind, bands int) (IndexSource, error) {
	if bands == 1 {
		return PassThroughExtractor{}, nil
	}
	if kind == IndexNDVI {
		return NewNDVIExtractor(), nil
	}
	return nil, fmt.Errorf("%s index images must be single band, got %d bands", kind, bands)
}
