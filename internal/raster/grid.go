package raster

import (
	"fmt"
	"time"
)

// NoData is the sentinel shared by every input and output raster.
const NoData = 0

// Georef carries the grid transform and coordinate reference of a raster so
// outputs can be aligned with their inputs.
type Georef struct {
	GeoTransform [6]float64
	HasTransform bool
	Projection   string
}

// Band is a single band of float64 values stored row-major.
type Band struct {
	Rows int
	Cols int
	Data []float64
}

func NewBand(rows, cols int) Band {
	return Band{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

func (b Band) At(row, col int) float64 {
	return b.Data[row*b.Cols+col]
}

func (b Band) Set(row, col int, v float64) {
	b.Data[row*b.Cols+col] = v
}

// Crop returns a copy of the top-left rows x cols window of the band.
func (b Band) Crop(rows, cols int) Band {
	if rows == b.Rows && cols == b.Cols {
		return b
	}
	out := NewBand(rows, cols)
	for r := 0; r < rows; r++ {
		copy(out.Data[r*cols:(r+1)*cols], b.Data[r*b.Cols:r*b.Cols+cols])
	}
	return out
}

// ByteBand is an 8-bit band stored row-major.
type ByteBand struct {
	Rows int
	Cols int
	Data []uint8
}

func NewByteBand(rows, cols int) ByteBand {
	return ByteBand{Rows: rows, Cols: cols, Data: make([]uint8, rows*cols)}
}

func (b ByteBand) At(row, col int) uint8 {
	return b.Data[row*b.Cols+col]
}

func (b ByteBand) Set(row, col int, v uint8) {
	b.Data[row*b.Cols+col] = v
}

// Mask is a boolean raster; true marks a pixel inside the processing area.
type Mask struct {
	Rows int
	Cols int
	Data []bool
}

func NewMask(rows, cols int, fill bool) Mask {
	m := Mask{Rows: rows, Cols: cols, Data: make([]bool, rows*cols)}
	if fill {
		for i := range m.Data {
			m.Data[i] = true
		}
	}
	return m
}

func (m Mask) Crop(rows, cols int) Mask {
	if rows == m.Rows && cols == m.Cols {
		return m
	}
	out := NewMask(rows, cols, false)
	for r := 0; r < rows; r++ {
		copy(out.Data[r*cols:(r+1)*cols], m.Data[r*m.Cols:r*m.Cols+cols])
	}
	return out
}

// IndexImage is a single-band vegetation-condition image for one date.
type IndexImage struct {
	Date time.Time
	Path string
	Band Band
}

// ReflectanceStack is a multi-band surface reflectance image for one date.
type ReflectanceStack struct {
	Date   time.Time
	Path   string
	Bands  []Band
	Georef Georef
}

func (s ReflectanceStack) Rows() int {
	if len(s.Bands) == 0 {
		return 0
	}
	return s.Bands[0].Rows
}

func (s ReflectanceStack) Cols() int {
	if len(s.Bands) == 0 {
		return 0
	}
	return s.Bands[0].Cols
}

func (s ReflectanceStack) Crop(rows, cols int) ReflectanceStack {
	out := s
	out.Bands = make([]Band, len(s.Bands))
	for i, b := range s.Bands {
		out.Bands[i] = b.Crop(rows, cols)
	}
	return out
}

func (s ReflectanceStack) String() string {
	return fmt.Sprintf("%s (%d bands, %dx%d)", s.Date.Format("2006-01-02"), len(s.Bands), s.Cols(), s.Rows())
}
