package timeseries

import (
	"math/rand"
	"testing"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/stretchr/testify/assert"
)

func bandOf(values ...float64) raster.Band {
	b := raster.NewBand(1, len(values))
	copy(b.Data, values)
	return b
}

func TestNormalizeKeepsNoData(t *testing.T) {
	got := Normalize(bandOf(0, 10, 20, 0, 30))

	assert.Equal(t, uint8(0), got.Data[0])
	assert.Equal(t, uint8(0), got.Data[3])
	// mean 20, population std sqrt(200/3)
	assert.Equal(t, uint8(107), got.Data[1])
	assert.Equal(t, uint8(125), got.Data[2])
	assert.Equal(t, uint8(143), got.Data[4])
}

func TestNormalizeFlatBand(t *testing.T) {
	got := Normalize(bandOf(42, 42, 0, 42))
	assert.Equal(t, []uint8{125, 125, 0, 125}, got.Data)
}

func TestNormalizeEmptyBand(t *testing.T) {
	got := Normalize(bandOf(0, 0, 0))
	assert.Equal(t, []uint8{0, 0, 0}, got.Data)
}

func TestNormalizeRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	b := raster.NewBand(50, 50)
	for i := range b.Data {
		switch {
		case i%13 == 0:
			b.Data[i] = 0
		case i%97 == 0:
			b.Data[i] = 1e6 // outlier pushes neighbours towards the clip bounds
		default:
			b.Data[i] = rng.Float64() * 100
		}
	}

	got := Normalize(b)
	for i, v := range b.Data {
		if v == 0 {
			assert.Equal(t, uint8(0), got.Data[i])
			continue
		}
		assert.GreaterOrEqual(t, got.Data[i], uint8(MinLevel))
	}
}

func TestNormalizeClipsOutliers(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50
	}
	values[0] = 1
	values[99] = 5000

	got := Normalize(bandOf(values...))
	assert.Equal(t, uint8(MaxLevel), got.Data[99])
	assert.GreaterOrEqual(t, got.Data[0], uint8(MinLevel))
}
