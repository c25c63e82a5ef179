package sentinel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrNoPolygon = errors.New("footprint has no polygon geometry")

// ReadFootprintGeometry collects every polygon of a GeoJSON file into one
// multipolygon. Coordinates must already be in the raster's CRS.
func ReadFootprintGeometry(path string) (orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var geometries []orb.Geometry
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(fc.Features) > 0 {
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	} else if g, err := geojson.UnmarshalGeometry(data); err == nil {
		geometries = append(geometries, g.Coordinates)
	} else {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var mp orb.MultiPolygon
	for _, g := range geometries {
		switch geom := g.(type) {
		case orb.Polygon:
			mp = append(mp, geom)
		case orb.MultiPolygon:
			mp = append(mp, geom...)
		}
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPolygon)
	}
	return mp, nil
}

// RasterizeFootprint marks every pixel whose centre falls inside the
// footprint.
func RasterizeFootprint(fp orb.MultiPolygon, g raster.Georef, rows, cols int) (raster.Mask, error) {
	if !g.HasTransform {
		return raster.Mask{}, errors.New("cannot rasterize a footprint on a grid without geotransform")
	}
	gt := g.GeoTransform
	bound := fp.Bound()

	m := raster.NewMask(rows, cols, false)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := gt[0] + (float64(c)+0.5)*gt[1] + (float64(r)+0.5)*gt[2]
			y := gt[3] + (float64(c)+0.5)*gt[4] + (float64(r)+0.5)*gt[5]
			p := orb.Point{x, y}
			if !bound.Contains(p) {
				continue
			}
			m.Data[r*cols+c] = planar.MultiPolygonContains(fp, p)
		}
	}
	return m, nil
}

// LoadFootprint reads a footprint as either a GeoJSON polygon file or a
// single band raster on the run's grid.
func LoadFootprint(path string, g raster.Georef, rows, cols int) (raster.Mask, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".geojson" || ext == ".json" {
		fp, err := ReadFootprintGeometry(path)
		if err != nil {
			return raster.Mask{}, err
		}
		return RasterizeFootprint(fp, g, rows, cols)
	}
	return ReadMask(path)
}
