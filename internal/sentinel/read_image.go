package sentinel

import (
	"fmt"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

func init() {
	godal.RegisterAll()
}

// OpenDataset opens a raster, ignoring GDAL warnings.
func OpenDataset(path string) (*godal.Dataset, error) {
	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return ds, nil
}

func readGeoref(ds *godal.Dataset) raster.Georef {
	var g raster.Georef
	if gt, err := ds.GeoTransform(); err == nil {
		g.GeoTransform = gt
		g.HasTransform = true
	}
	g.Projection = ds.Projection()
	return g
}

func readBands(ds *godal.Dataset) ([]raster.Band, error) {
	width := ds.Structure().SizeX
	height := ds.Structure().SizeY

	var bands []raster.Band
	for i, band := range ds.Bands() {
		b := raster.NewBand(height, width)
		if err := band.Read(0, 0, b.Data, width, height); err != nil {
			return nil, fmt.Errorf("failed to read band %d: %w", i+1, err)
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// ReadStack reads every band of a raster into a stack dated date.
func ReadStack(path string, date time.Time) (raster.ReflectanceStack, error) {
	ds, err := OpenDataset(path)
	if err != nil {
		return raster.ReflectanceStack{}, err
	}
	defer ds.Close()

	bands, err := readBands(ds)
	if err != nil {
		return raster.ReflectanceStack{}, fmt.Errorf("%s: %w", path, err)
	}
	return raster.ReflectanceStack{Date: date, Path: path, Bands: bands, Georef: readGeoref(ds)}, nil
}

// ReadIndexImage reads a dated file and turns it into an index image of the
// given kind.
func ReadIndexImage(f SceneFile, kind IndexKind) (raster.IndexImage, error) {
	stack, err := ReadStack(f.Path, f.Date)
	if err != nil {
		return raster.IndexImage{}, err
	}
	src, err := SourceFor(kind, len(stack.Bands))
	if err != nil {
		return raster.IndexImage{}, fmt.Errorf("%s: %w", f.Path, err)
	}
	return src.Extract(stack)
}

// ReadMask reads band 1 of a raster as a footprint; non-zero marks the
// processing area.
func ReadMask(path string) (raster.Mask, error) {
	stack, err := ReadStack(path, time.Time{})
	if err != nil {
		return raster.Mask{}, err
	}
	if len(stack.Bands) == 0 {
		return raster.Mask{}, fmt.Errorf("%s has no bands", path)
	}
	b := stack.Bands[0]
	m := raster.NewMask(b.Rows, b.Cols, false)
	for i, v := range b.Data {
		m.Data[i] = v != raster.NoData
	}
	return m, nil
}
