package raster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledBand(rows, cols int) Band {
	b := NewBand(rows, cols)
	for i := range b.Data {
		b.Data[i] = float64(i + 1)
	}
	return b
}

func TestCropToCommon(t *testing.T) {
	start := &ReflectanceStack{Bands: []Band{filledBand(5, 6), filledBand(5, 6)}}
	end := &ReflectanceStack{Bands: []Band{filledBand(4, 7)}}
	images := []IndexImage{{Band: filledBand(6, 5)}}
	mask := NewMask(5, 5, true)

	shape, err := CropToCommon([]*ReflectanceStack{start, end}, images, &mask)
	require.NoError(t, err)
	assert.Equal(t, Shape{Rows: 4, Cols: 5}, shape)

	assert.Equal(t, 4, start.Rows())
	assert.Equal(t, 5, start.Cols())
	assert.Equal(t, 5, end.Cols())
	assert.Equal(t, 4, images[0].Band.Rows)
	assert.Equal(t, 4, mask.Rows)

	// Row 1, col 0 of the 5x6 source holds 7.
	assert.Equal(t, 7.0, start.Bands[0].At(1, 0))
	// Row 1, col 0 of the 6x5 source holds 6.
	assert.Equal(t, 6.0, images[0].Band.At(1, 0))
}

func TestCropToCommonNoOverlap(t *testing.T) {
	start := &ReflectanceStack{Bands: []Band{filledBand(3, 3)}}
	images := []IndexImage{{Band: NewBand(0, 3)}}

	_, err := CropToCommon([]*ReflectanceStack{start}, images, nil)
	var mismatch *GridMismatchError
	require.True(t, errors.As(err, &mismatch))
}

func TestCropToCommonEmptyStack(t *testing.T) {
	_, err := CropToCommon([]*ReflectanceStack{{Path: "x.img"}}, nil, nil)
	var mismatch *GridMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, mismatch.Error(), "x.img")
}
