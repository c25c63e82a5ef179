package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

// createENVIImage writes byte bands as one ENVI raster with nodata 0,
// carrying the given georeferencing. Band names are optional.
func createENVIImage(path string, bands []raster.ByteBand, names []string, georef raster.Georef) error {
	if len(bands) == 0 {
		return fmt.Errorf("no bands to write to %s", path)
	}
	rows, cols := bands[0].Rows, bands[0].Cols
	for i, b := range bands {
		if b.Rows != rows || b.Cols != cols {
			return fmt.Errorf("band %d is %dx%d, expected %dx%d", i+1, b.Cols, b.Rows, cols, rows)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	godal.RegisterAll()
	ds, err := godal.Create(godal.DriverName("ENVI"), path, len(bands), godal.Byte, cols, rows)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if georef.HasTransform {
		if err := ds.SetGeoTransform(georef.GeoTransform); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set geotransform: %w", err)
		}
	}
	if georef.Projection != "" {
		if err := ds.SetProjection(georef.Projection); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set projection: %w", err)
		}
	}

	for i, band := range ds.Bands() {
		if err := band.Write(0, 0, bands[i].Data, cols, rows); err != nil {
			ds.Close()
			return fmt.Errorf("failed to write band %d: %w", i+1, err)
		}
		if err := band.SetNoData(raster.NoData); err != nil {
			ds.Close()
			return fmt.Errorf("failed to set nodata on band %d: %w", i+1, err)
		}
		if i < len(names) {
			if err := band.SetDescription(names[i]); err != nil {
				ds.Close()
				return fmt.Errorf("failed to name band %d: %w", i+1, err)
			}
		}
	}

	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
