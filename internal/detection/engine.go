package detection

import (
	"errors"
	"fmt"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/baseline"
	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/timeseries"
)

// Inputs are the fully materialized rasters of one run.
type Inputs struct {
	IndexImages []raster.IndexImage
	StartStack  raster.ReflectanceStack
	EndStack    raster.ReflectanceStack
	// Footprint is optional; nil processes the whole grid.
	Footprint *raster.Mask
}

type Params struct {
	StartDate          time.Time
	EndDate            time.Time
	Window             baseline.Window
	Lookback           int
	OmitStartThreshold bool
	Workers            int
}

var ErrEndBeforeStart = errors.New("end date must be after start date")

func (p Params) Validate() error {
	if !p.EndDate.After(p.StartDate) {
		return fmt.Errorf("%s to %s: %w", p.StartDate.Format("20060102"), p.EndDate.Format("20060102"), ErrEndBeforeStart)
	}
	if p.Lookback < 1 {
		return baseline.ErrInvalidLookback
	}
	if p.Window.End.Before(p.Window.Start) {
		return baseline.ErrWindowWraps
	}
	return nil
}

type Result struct {
	Shape  raster.Shape
	Georef raster.Georef

	Classes        raster.ByteBand
	Interpretation change.Interpretation
	StretchStats   map[string]change.StretchStats

	Ensemble       baseline.Ensemble
	StartIndexDate time.Time
	EndIndexDate   time.Time

	ClassCounts map[change.Class]int
	// DegeneratePixels counts pixels nulled because their baseline could
	// not support the deviation tests.
	DegeneratePixels int
}

// Run executes the seasonal window change detection on in-memory inputs. It
// either returns a complete result or an error; nothing is partially
// produced.
func Run(in Inputs, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	images := append([]raster.IndexImage(nil), in.IndexImages...)
	startStack, endStack := in.StartStack, in.EndStack
	var footprint *raster.Mask
	if in.Footprint != nil {
		fp := *in.Footprint
		footprint = &fp
	}
	shape, err := raster.CropToCommon([]*raster.ReflectanceStack{&startStack, &endStack}, images, footprint)
	if err != nil {
		return nil, err
	}

	ensemble, err := baseline.Select(images, p.Window, p.Lookback, p.StartDate)
	if err != nil {
		return nil, err
	}
	startImage, err := baseline.SelectNearest(images, p.StartDate, p.Window)
	if err != nil {
		return nil, fmt.Errorf("start index image: %w", err)
	}
	endImage, err := baseline.SelectNearest(images, p.EndDate, p.Window)
	if err != nil {
		return nil, fmt.Errorf("end index image: %w", err)
	}

	stats, err := timeseries.ComputeStatistics(timeseries.NormalizeAll(ensemble.Members), p.Workers)
	if err != nil {
		return nil, err
	}

	metrics, err := change.ComputeMetrics(change.MetricInputs{
		Start:      timeseries.Normalize(startImage.Band),
		End:        timeseries.Normalize(endImage.Band),
		EndDate:    p.EndDate,
		Statistics: stats,
		StartStack: startStack,
		EndStack:   endStack,
		Workers:    p.Workers,
	})
	if err != nil {
		return nil, err
	}

	classes, err := change.Classify(metrics, change.ClassifyOptions{
		OmitStartThreshold: p.OmitStartThreshold,
		Footprint:          footprint,
		Workers:            p.Workers,
	})
	if err != nil {
		return nil, err
	}
	interp, stretch, err := change.Interpret(metrics, classes)
	if err != nil {
		return nil, err
	}

	return &Result{
		Shape:            shape,
		Georef:           startStack.Georef,
		Classes:          classes,
		Interpretation:   interp,
		StretchStats:     stretch,
		Ensemble:         ensemble,
		StartIndexDate:   startImage.Date,
		EndIndexDate:     endImage.Date,
		ClassCounts:      change.CountClasses(classes),
		DegeneratePixels: metrics.Degenerate,
	}, nil
}
