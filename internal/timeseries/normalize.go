package timeseries

import (
	"math"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"gonum.org/v1/gonum/stat"
)

// Legacy normalization constants: valid values are re-centred on Center with
// one standard deviation spanning Scale output levels.
const (
	Center   = 125.0
	Scale    = 15.0
	MinLevel = 1
	MaxLevel = 255
)

// NormalizedImage is an index image rescaled onto the common 8-bit scale.
type NormalizedImage struct {
	Date time.Time
	Band raster.ByteBand
}

func isValid(v float64) bool {
	return v > raster.NoData && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Normalize rescales the valid pixels of b using that band's own mean and
// standard deviation. No-data pixels stay 0 and valid pixels land in
// [MinLevel, MaxLevel]. A flat band maps every valid pixel to Center.
func Normalize(b raster.Band) raster.ByteBand {
	out := raster.NewByteBand(b.Rows, b.Cols)

	values := make([]float64, 0, len(b.Data))
	for _, v := range b.Data {
		if isValid(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return out
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	for i, v := range b.Data {
		if !isValid(v) {
			continue
		}
		level := Center
		if std > 0 {
			level = math.Round(Center + Scale*(v-mean)/std)
		}
		out.Data[i] = clampLevel(level)
	}
	return out
}

func clampLevel(v float64) uint8 {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return uint8(v)
}

// NormalizeImage normalizes an index image and keeps its capture date.
func NormalizeImage(img raster.IndexImage) NormalizedImage {
	return NormalizedImage{Date: img.Date, Band: Normalize(img.Band)}
}

func NormalizeAll(images []raster.IndexImage) []NormalizedImage {
	out := make([]NormalizedImage, len(images))
	for i, img := range images {
		out[i] = NormalizeImage(img)
	}
	return out
}
