package timeseries

import (
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/eds-change-cli/internal/baseline"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
	"gonum.org/v1/gonum/stat"
)

var ErrShapeMismatch = errors.New("baseline images do not share one shape")

// Statistics holds the per-pixel description of the baseline ensemble.
// Pixels with fewer than two valid samples are 0 in every band and false
// in Valid.
type Statistics struct {
	Rows      int
	Cols      int
	Mean      raster.Band
	Std       raster.Band
	StdErr    raster.Band
	Slope     raster.Band
	Intercept raster.Band
	Samples   []int
	Valid     raster.Mask

	// Times are the decimal years the regression was fitted on, one per
	// ensemble image.
	Times []float64

	// Degenerate counts pixels that could not be described.
	Degenerate int
}

// Predict evaluates the fitted trend at a pixel for a decimal year.
func (s *Statistics) Predict(i int, decimalYear float64) float64 {
	return s.Intercept.Data[i] + s.Slope.Data[i]*decimalYear
}

// ComputeStatistics fits mean, standard deviation, standard error and an
// ordinary least squares trend against decimal year at every pixel. No-data
// samples are dropped from their pixel's fit. Row blocks are processed by up
// to workers goroutines.
func ComputeStatistics(images []NormalizedImage, workers int) (*Statistics, error) {
	if len(images) < baseline.MinEnsembleSize {
		return nil, fmt.Errorf("need at least %d baseline images, got %d", baseline.MinEnsembleSize, len(images))
	}
	rows, cols := images[0].Band.Rows, images[0].Band.Cols
	times := make([]float64, len(images))
	for i, img := range images {
		if img.Band.Rows != rows || img.Band.Cols != cols {
			return nil, fmt.Errorf("image %s is %dx%d, expected %dx%d: %w",
				img.Date.Format("2006-01-02"), img.Band.Cols, img.Band.Rows, cols, rows, ErrShapeMismatch)
		}
		times[i] = baseline.DecimalYear(img.Date)
	}

	s := &Statistics{
		Rows:      rows,
		Cols:      cols,
		Mean:      raster.NewBand(rows, cols),
		Std:       raster.NewBand(rows, cols),
		StdErr:    raster.NewBand(rows, cols),
		Slope:     raster.NewBand(rows, cols),
		Intercept: raster.NewBand(rows, cols),
		Samples:   make([]int, rows*cols),
		Valid:     raster.NewMask(rows, cols, false),
		Times:     times,
	}

	degenerate := make([]int, rows)
	utils.ForEachRowBlock(rows, workers, func(rowStart, rowEnd int) {
		xs := make([]float64, 0, len(images))
		ys := make([]float64, 0, len(images))
		for r := rowStart; r < rowEnd; r++ {
			for c := 0; c < cols; c++ {
				i := r*cols + c
				xs, ys = xs[:0], ys[:0]
				for k, img := range images {
					v := img.Band.Data[i]
					if v == raster.NoData {
						continue
					}
					xs = append(xs, times[k])
					ys = append(ys, float64(v))
				}
				s.Samples[i] = len(ys)
				if len(ys) < baseline.MinEnsembleSize {
					degenerate[r]++
					continue
				}
				s.fitPixel(i, xs, ys)
			}
		}
	})

	for _, n := range degenerate {
		s.Degenerate += n
	}
	return s, nil
}

func (s *Statistics) fitPixel(i int, xs, ys []float64) {
	mean, std := stat.PopMeanStdDev(ys, nil)
	s.Mean.Data[i] = mean
	s.Std.Data[i] = std
	s.StdErr.Data[i] = std / math.Sqrt(float64(len(ys)))

	if stat.PopVariance(xs, nil) == 0 {
		s.Slope.Data[i] = 0
		s.Intercept.Data[i] = mean
	} else {
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		s.Intercept.Data[i] = alpha
		s.Slope.Data[i] = beta
	}
	s.Valid.Data[i] = true
}
