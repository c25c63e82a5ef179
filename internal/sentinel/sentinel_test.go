package sentinel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stackOf(values ...[]float64) raster.ReflectanceStack {
	s := raster.ReflectanceStack{Date: time.Date(2023, 7, 24, 0, 0, 0, 0, time.UTC)}
	for _, v := range values {
		b := raster.NewBand(1, len(v))
		copy(b.Data, v)
		s.Bands = append(s.Bands, b)
	}
	return s
}

func TestScaleNDVI(t *testing.T) {
	tests := []struct {
		name     string
		red, nir float64
		want     float64
	}{
		{"zero index", 500, 500, 100},
		{"dense vegetation", 100, 900, 180},
		{"bare", 900, 100, 20},
		{"red no-data", 0, 900, 0},
		{"nir no-data", 100, 0, 0},
		{"vanishing denominator", -500, 500, 0},
		{"clipped low", 1000, -999, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaleNDVI(tt.red, tt.nir))
		})
	}
}

func TestNDVIExtractor(t *testing.T) {
	s := stackOf(
		[]float64{1, 1}, []float64{1, 1}, []float64{1, 1},
		[]float64{100, 0},
		[]float64{900, 300},
	)
	img, err := NewNDVIExtractor().Extract(s)
	require.NoError(t, err)
	assert.Equal(t, []float64{180, 0}, img.Band.Data)
	assert.Equal(t, s.Date, img.Date)

	_, err = NewNDVIExtractor().Extract(stackOf([]float64{1}))
	assert.Error(t, err)
}

func TestSourceFor(t *testing.T) {
	src, err := SourceFor(IndexFPC, 1)
	require.NoError(t, err)
	img, err := src.Extract(stackOf([]float64{0, 142}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 142}, img.Band.Data)

	src, err = SourceFor(IndexNDVI, 6)
	require.NoError(t, err)
	assert.IsType(t, NDVIExtractor{}, src)

	_, err = SourceFor(IndexFPC, 6)
	assert.Error(t, err)
}

func TestParseIndexKind(t *testing.T) {
	k, err := ParseIndexKind("NDVI")
	require.NoError(t, err)
	assert.Equal(t, IndexNDVI, k)

	k, err = ParseIndexKind("")
	require.NoError(t, err)
	assert.Equal(t, IndexFPC, k)

	_, err = ParseIndexKind("evi")
	assert.ErrorIs(t, err, ErrUnknownIndexKind)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("/data/p104r072/lztmre_p104r072_20200611_dc4mz.img")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.June, 11, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("/data/20200611/lztmre_p104r072_dc4mz.img")
	assert.Error(t, err)

	_, err = ParseDate("lztmre_p104r072_20201341_dc4mz.img")
	assert.Error(t, err)
}

func TestListSceneFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"lztmre_p104r072_20210705_dc4mz.img",
		"lztmre_p104r072_19990812_dc4mz.img",
		"lztmre_p104r072_undated_dc4mz.img",
		"lztmre_p104r072_20210705_db8mz.img",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, undated, err := ListSceneFiles(filepath.Join(dir, "*_dc4mz.img"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, 1999, files[0].Date.Year())
	assert.Equal(t, 2021, files[1].Date.Year())
	assert.Len(t, undated, 1)
}

func TestSceneListing(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ROOT_PATH", root)
	for _, scene := range []string{"p104r072", "p090r084"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "data", scene), 0o755))
		name := filepath.Join(root, "data", scene, "lztmre_"+scene+"_20200101_dc4mz.img")
		require.NoError(t, os.WriteFile(name, nil, 0o644))
	}

	scenes, err := ListScenes()
	require.NoError(t, err)
	assert.Equal(t, []string{"p090r084", "p104r072"}, scenes)
	assert.Equal(t, filepath.Join(root, "data", "p104r072", "lztmre_p104r072_20230724_db8mz.img"),
		ReflectancePath("p104r072", time.Date(2023, 7, 24, 0, 0, 0, 0, time.UTC)))
}

const squareFootprint = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {},
    "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [20, 0], [20, -20], [0, -20], [0, 0]]]}
  }]
}`

func TestRasterizeFootprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "footprint.geojson")
	require.NoError(t, os.WriteFile(path, []byte(squareFootprint), 0o644))

	fp, err := ReadFootprintGeometry(path)
	require.NoError(t, err)
	assert.Len(t, fp, 1)

	// 10 unit pixels with the origin at the polygon's top-left corner
	g := raster.Georef{GeoTransform: [6]float64{0, 10, 0, 0, 0, -10}, HasTransform: true}
	m, err := LoadFootprint(path, g, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []bool{
		true, true, false,
		true, true, false,
		false, false, false,
	}, m.Data)

	_, err = RasterizeFootprint(fp, raster.Georef{}, 3, 3)
	assert.Error(t, err)
}

func TestReadFootprintGeometryRejectsPoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "point.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "Point", "coordinates": [1, 2]}`), 0o644))

	_, err := ReadFootprintGeometry(path)
	assert.ErrorIs(t, err, ErrNoPolygon)
}
