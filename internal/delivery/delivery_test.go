package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/detection"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/sentinel"
	"github.com/forest-guardian/eds-change-cli/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scene   = "p090r079"
	rows    = 6
	cols    = 6
	cleared = 4
)

func writeFixture(t *testing.T, path string, bands []raster.Band) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	godal.RegisterAll()
	ds, err := godal.Create(godal.DriverName("ENVI"), path, len(bands), godal.UInt16, cols, rows)
	require.NoError(t, err)
	require.NoError(t, ds.SetGeoTransform([6]float64{500000, 30, 0, 7000000, 0, -30}))
	for i, b := range ds.Bands() {
		buf := make([]uint16, len(bands[i].Data))
		for j, v := range bands[i].Data {
			buf[j] = uint16(v)
		}
		require.NoError(t, b.Write(0, 0, buf, cols, rows))
	}
	require.NoError(t, ds.Close())
}

func coverBand(year int) raster.Band {
	b := raster.NewBand(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			noise := (r*7 + c*3 + year*5) % 11
			b.Set(r, c, float64(40+25*r+5*c+noise))
		}
	}
	return b
}

func reflectance(clearedValue float64) []raster.Band {
	var bands []raster.Band
	for i := 0; i < change.RequiredReflectanceBands; i++ {
		b := raster.NewBand(rows, cols)
		for j := range b.Data {
			b.Data[j] = 100
		}
		if i != 0 && i != 3 {
			b.Set(cleared, cleared, clearedValue)
		}
		bands = append(bands, b)
	}
	return bands
}

// sceneFixture lays out ten yearly cover images, the end image with one
// cleared pixel and both reflectance stacks under ROOT_PATH.
func sceneFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("ROOT_PATH", root)
	t.Setenv("EDS_OUTPUT_DIR", "")
	dir := sentinel.SceneDir(scene)

	for y := 2014; y <= 2023; y++ {
		writeFixture(t, filepath.Join(dir, fmt.Sprintf("lztmre_%s_%d0801_dc4mz.img", scene, y)), []raster.Band{coverBand(y)})
	}
	end := coverBand(2024)
	end.Set(cleared, cleared, 10)
	writeFixture(t, filepath.Join(dir, fmt.Sprintf("lztmre_%s_20240815_dc4mz.img", scene)), []raster.Band{end})

	writeFixture(t, sentinel.ReflectancePath(scene, time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)), reflectance(100))
	writeFixture(t, sentinel.ReflectancePath(scene, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)), reflectance(300))
	return root
}

func fixtureJob() properties.Job {
	return properties.Job{Scene: scene, StartDate: "20230801", EndDate: "20240815", Lookback: 10, Preview: true}
}

func TestRequestFromJobDefaults(t *testing.T) {
	req, err := RequestFromJob(properties.Job{Scene: scene, StartDate: "20230724", EndDate: "20240831"})
	require.NoError(t, err)

	assert.Equal(t, "0724", req.Window.Start.String())
	assert.Equal(t, "0831", req.Window.End.String())
	assert.Equal(t, properties.DefaultLookback, req.Lookback)
	assert.Equal(t, sentinel.IndexFPC, req.IndexKind)
	assert.Equal(t, time.Date(2023, 7, 24, 0, 0, 0, 0, time.UTC), req.StartDate)
}

func TestRequestFromJobErrors(t *testing.T) {
	cases := map[string]properties.Job{
		"bad date":   {Scene: scene, StartDate: "2023-07-24", EndDate: "20240831"},
		"bad window": {Scene: scene, StartDate: "20230724", EndDate: "20240831", WindowStart: "1101", WindowEnd: "0301"},
		"bad kind":   {Scene: scene, StartDate: "20230724", EndDate: "20240831", IndexKind: "evi"},
		"no scene":   {StartDate: "20230724", EndDate: "20240831"},
	}
	for name, job := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := RequestFromJob(job)
			assert.Error(t, err)
		})
	}
}

func TestRunChangeDetectionEndToEnd(t *testing.T) {
	sceneFixture(t)
	req, err := RequestFromJob(fixtureJob())
	require.NoError(t, err)
	req.Quiet = true
	req.Workers = 2

	record, err := RunChangeDetection(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, record.Cached)
	assert.NotEmpty(t, record.RunID)

	dll, err := sentinel.ReadStack(record.Outputs.DLL, req.EndDate)
	require.NoError(t, err)
	require.Len(t, dll.Bands, 1)
	assert.Equal(t, float64(change.Class39), dll.Bands[0].At(cleared, cleared))

	dlj, err := sentinel.ReadStack(record.Outputs.DLJ, req.EndDate)
	require.NoError(t, err)
	assert.Len(t, dlj.Bands, len(change.InterpretationBands))

	runLog, err := output.ReadRunLog(record.Outputs.Log)
	require.NoError(t, err)
	assert.Equal(t, scene, runLog.Scene)
	assert.Equal(t, "fpc", runLog.Process)
	assert.Len(t, runLog.BaselineDates, 10)
	assert.Equal(t, "20240815", runLog.EndIndexDate)
	assert.Equal(t, record.Outputs.Preview, runLog.Outputs.Preview)
	assert.FileExists(t, record.Outputs.Summary)
	assert.FileExists(t, record.Outputs.Preview)

	again, err := RunChangeDetection(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, record.RunID, again.RunID)

	req.Force = true
	forced, err := RunChangeDetection(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
	assert.NotEqual(t, record.RunID, forced.RunID)
}

func TestRunChangeDetectionWritesNothingOnFailure(t *testing.T) {
	sceneFixture(t)
	job := fixtureJob()
	job.StartDate = "20150801"
	job.Lookback = 1
	req, err := RequestFromJob(job)
	require.NoError(t, err)
	req.Quiet = true
	// no reflectance stack exists for the start date
	_, err = RunChangeDetection(context.Background(), req)
	require.Error(t, err)

	names := output.BuildNames(filepath.Dir(req.StartDb8), scene, req.StartDate, req.EndDate, false)
	assert.NoFileExists(t, names.DLL)
	assert.NoFileExists(t, names.DLJ)
}

func TestUsefulIndexFiles(t *testing.T) {
	req, err := RequestFromJob(properties.Job{Scene: scene, StartDate: "20230801", EndDate: "20240815", WindowStart: "0701", WindowEnd: "0831"})
	require.NoError(t, err)

	day := func(y int, m time.Month, d int) sentinel.SceneFile {
		return sentinel.SceneFile{Path: fmt.Sprint(y, m, d), Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	}
	files := []sentinel.SceneFile{day(2020, time.July, 15), day(2020, time.December, 1), day(2024, time.August, 15), day(2022, time.March, 3)}
	kept := usefulIndexFiles(files, req)
	assert.Equal(t, []sentinel.SceneFile{files[0], files[2]}, kept)
}

func TestRunJobsContinuesAfterFailure(t *testing.T) {
	defer func(f func(context.Context, RunRequest) (*RunRecord, error)) { runFunc = f }(runFunc)
	runFunc = func(_ context.Context, req RunRequest) (*RunRecord, error) {
		if req.Scene == "broken" {
			return nil, errors.New("missing reflectance")
		}
		return &RunRecord{Scene: req.Scene, Cached: req.Scene == "cached", Outputs: output.Names{DLL: req.Scene + "_dllmz.img"}}, nil
	}

	jobs := []properties.Job{
		{Scene: "a", StartDate: "20230801", EndDate: "20240815"},
		{Scene: "broken", StartDate: "20230801", EndDate: "20240815"},
		{Scene: "bad", StartDate: "2023", EndDate: "20240815"},
		{Scene: "cached", StartDate: "20230801", EndDate: "20240815"},
	}
	rows := RunJobs(context.Background(), jobs, BatchOptions{Quiet: true})
	require.Len(t, rows, 4)
	assert.Equal(t, StatusDone, rows[0].Status)
	assert.Equal(t, "a_dllmz.img", rows[0].DLL)
	assert.Equal(t, StatusFailed, rows[1].Status)
	assert.Equal(t, "missing reflectance", rows[1].Error)
	assert.Equal(t, StatusInvalid, rows[2].Status)
	assert.Equal(t, StatusCached, rows[3].Status)

	summary := summarize(rows)
	assert.Contains(t, summary, [2]string{"Failed", "2"})
	assert.Contains(t, summary, [2]string{"Jobs", "4"})
}

func TestRunBatchWritesReport(t *testing.T) {
	defer func(f func(context.Context, RunRequest) (*RunRecord, error)) { runFunc = f }(runFunc)
	runFunc = func(_ context.Context, req RunRequest) (*RunRecord, error) {
		return &RunRecord{Scene: req.Scene}, nil
	}
	t.Setenv("DISCORD_SUCCESS_NOTIFICATION_URL", "")

	dir := t.TempDir()
	jobsPath := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobsPath, []byte("defaults:\n  startDate: \"20230801\"\n  endDate: \"20240815\"\njobs:\n  - scene: a\n  - scene: b\n"), 0644))

	rows, err := RunBatch(context.Background(), jobsPath, BatchOptions{OutputDir: dir, Quiet: true})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	reports, err := filepath.Glob(filepath.Join(dir, "batch_report_*.csv"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestWriteOutputsRemovesClassRasterWhenInterpretationFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not_a_dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	names := output.BuildNames(dir, scene, time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), false)
	names.DLJ = filepath.Join(blocker, filepath.Base(names.DLJ))

	band := func() raster.ByteBand {
		b := raster.NewByteBand(2, 2)
		for i := range b.Data {
			b.Data[i] = uint8(change.ClassNoClearing)
		}
		return b
	}
	res := &detection.Result{
		Classes: band(),
		Interpretation: change.Interpretation{
			SpectralIndex:       band(),
			DeviationTest:       band(),
			CombinedIndex:       band(),
			ClearingProbability: band(),
		},
	}

	err := writeOutputs(names, RunRequest{}, res)
	require.Error(t, err)
	assert.NoFileExists(t, names.DLL)
	assert.NoFileExists(t, names.Summary)
}
