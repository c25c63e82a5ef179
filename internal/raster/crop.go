package raster

import "fmt"

// GridMismatchError reports inputs that cannot be reconciled onto one grid.
type GridMismatchError struct {
	Reason string
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("grid mismatch: %s", e.Reason)
}

// Shape is the row/column size of a raster.
type Shape struct {
	Rows int
	Cols int
}

// CommonShape returns the minimal rows and cols across all shapes. Inputs are
// assumed to share their top-left origin, so the intersection is the
// top-left window of that size.
func CommonShape(shapes ...Shape) (Shape, error) {
	if len(shapes) == 0 {
		return Shape{}, &GridMismatchError{Reason: "no inputs"}
	}
	common := shapes[0]
	for _, s := range shapes[1:] {
		if s.Rows < common.Rows {
			common.Rows = s.Rows
		}
		if s.Cols < common.Cols {
			common.Cols = s.Cols
		}
	}
	if common.Rows <= 0 || common.Cols <= 0 {
		return Shape{}, &GridMismatchError{Reason: fmt.Sprintf("inputs have no overlap (%dx%d)", common.Cols, common.Rows)}
	}
	return common, nil
}

// CropToCommon crops the reflectance stacks, index images and optional mask
// to their minimal common shape, in place. It runs once per run.
func CropToCommon(stacks []*ReflectanceStack, images []IndexImage, mask *Mask) (Shape, error) {
	shapes := make([]Shape, 0, len(stacks)+len(images)+1)
	for _, s := range stacks {
		if len(s.Bands) == 0 {
			return Shape{}, &GridMismatchError{Reason: fmt.Sprintf("reflectance stack %s has no bands", s.Path)}
		}
		shapes = append(shapes, Shape{Rows: s.Rows(), Cols: s.Cols()})
	}
	for _, img := range images {
		shapes = append(shapes, Shape{Rows: img.Band.Rows, Cols: img.Band.Cols})
	}
	if mask != nil {
		shapes = append(shapes, Shape{Rows: mask.Rows, Cols: mask.Cols})
	}

	common, err := CommonShape(shapes...)
	if err != nil {
		return Shape{}, err
	}

	for _, s := range stacks {
		*s = s.Crop(common.Rows, common.Cols)
	}
	for i := range images {
		images[i].Band = images[i].Band.Crop(common.Rows, common.Cols)
	}
	if mask != nil {
		*mask = mask.Crop(common.Rows, common.Cols)
	}
	return common, nil
}
