package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/baseline"
	"github.com/forest-guardian/eds-change-cli/internal/cache"
	"github.com/forest-guardian/eds-change-cli/internal/detection"
	"github.com/forest-guardian/eds-change-cli/internal/log"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/sentinel"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
	"github.com/forest-guardian/eds-change-cli/output"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// RunRequest is one change detection run with every path resolved or left
// empty for the scene defaults.
type RunRequest struct {
	Scene              string
	StartDate          time.Time
	EndDate            time.Time
	Window             baseline.Window
	Lookback           int
	OmitStartThreshold bool
	IndexKind          sentinel.IndexKind
	Dc4Glob            string
	StartDb8           string
	EndDb8             string
	Footprint          string
	OutputDir          string
	Preview            bool
	Force              bool
	Workers            int
	// Quiet disables the progress bar.
	Quiet bool
}

// RunRecord is what a finished run leaves behind; it is also the cached
// value that lets identical reruns be skipped.
type RunRecord struct {
	RunID       string         `json:"run_id"`
	Scene       string         `json:"scene"`
	Outputs     output.Names   `json:"outputs"`
	ClassCounts map[string]int `json:"class_counts"`
	Degenerate  int            `json:"degenerate"`
	Fingerprint string         `json:"fingerprint"`
	Cached      bool           `json:"-"`
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYYMMDD: %q", s)
	}
	return t, nil
}

// RequestFromJob validates a job and resolves its defaults. The window
// defaults to the month and day of the start and end dates.
func RequestFromJob(j properties.Job) (RunRequest, error) {
	if err := j.Validate(); err != nil {
		return RunRequest{}, err
	}
	start, err := parseDate(j.StartDate)
	if err != nil {
		return RunRequest{}, fmt.Errorf("start date: %w", err)
	}
	end, err := parseDate(j.EndDate)
	if err != nil {
		return RunRequest{}, fmt.Errorf("end date: %w", err)
	}

	ws, we := j.WindowStart, j.WindowEnd
	if ws == "" {
		ws = start.Format("0102")
	}
	if we == "" {
		we = end.Format("0102")
	}
	window, err := baseline.NewWindow(ws, we)
	if err != nil {
		return RunRequest{}, err
	}

	kind, err := sentinel.ParseIndexKind(j.IndexKind)
	if err != nil {
		return RunRequest{}, err
	}
	lookback := j.Lookback
	if lookback == 0 {
		lookback = properties.DefaultLookback
	}

	return RunRequest{
		Scene:              j.Scene,
		StartDate:          start,
		EndDate:            end,
		Window:             window,
		Lookback:           lookback,
		OmitStartThreshold: j.OmitStartThreshold,
		IndexKind:          kind,
		Dc4Glob:            j.Dc4Glob,
		StartDb8:           j.StartDb8,
		EndDb8:             j.EndDb8,
		Footprint:          j.Footprint,
		Preview:            j.Preview,
		Workers:            properties.Workers(),
	}, nil
}

func (r *RunRequest) resolvePaths() {
	if r.Dc4Glob == "" {
		r.Dc4Glob = sentinel.IndexGlob(r.Scene)
	}
	if r.StartDb8 == "" {
		r.StartDb8 = sentinel.ReflectancePath(r.Scene, r.StartDate)
	}
	if r.EndDb8 == "" {
		r.EndDb8 = sentinel.ReflectancePath(r.Scene, r.EndDate)
	}
	if r.OutputDir == "" {
		r.OutputDir = properties.OutputPath()
	}
	if r.OutputDir == "" {
		r.OutputDir = filepath.Dir(r.StartDb8)
	}
}

func (r RunRequest) cacheKey() string {
	return cache.GenerateKey(r.Scene, r.StartDate.Format("20060102"), r.EndDate.Format("20060102"),
		r.Window, r.Lookback, r.OmitStartThreshold, r.IndexKind, r.Dc4Glob, r.StartDb8, r.EndDb8, r.Footprint)
}

// usefulIndexFiles keeps the files the engine can pick from: those inside
// the window plus exact start and end date matches.
func usefulIndexFiles(files []sentinel.SceneFile, r RunRequest) []sentinel.SceneFile {
	var kept []sentinel.SceneFile
	for _, f := range files {
		if r.Window.Contains(f.Date) || f.Date.Equal(r.StartDate) || f.Date.Equal(r.EndDate) {
			kept = append(kept, f)
		}
	}
	return kept
}

func filesExist(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// RunChangeDetection loads a scene's rasters, runs the engine and writes
// every output. Outputs are only written once the engine has succeeded.
func RunChangeDetection(ctx context.Context, req RunRequest) (*RunRecord, error) {
	startedAt := time.Now()
	req.resolvePaths()
	runID := uuid.New().String()
	logger := log.GetSugaredLogger().With("run_id", runID, "scene", req.Scene)

	files, undated, err := sentinel.ListSceneFiles(req.Dc4Glob)
	if err != nil {
		return nil, err
	}
	for _, p := range undated {
		logger.Warnw("skipping index file without date", "path", p)
	}
	files = usefulIndexFiles(files, req)
	if len(files) == 0 {
		return nil, fmt.Errorf("no index images match %s within window %s", req.Dc4Glob, req.Window)
	}

	inputs := []string{req.StartDb8, req.EndDb8}
	for _, f := range files {
		inputs = append(inputs, f.Path)
	}
	if req.Footprint != "" {
		inputs = append(inputs, req.Footprint)
	}
	fingerprint, err := cache.Fingerprint(inputs...)
	if err != nil {
		return nil, fmt.Errorf("input missing: %w", err)
	}

	names := output.BuildNames(req.OutputDir, req.Scene, req.StartDate, req.EndDate, req.IndexKind == sentinel.IndexNDVI)
	var runCache cache.CacheService[RunRecord] = cache.NewFileCache[RunRecord](filepath.Join(properties.CachePath(), "runs"))
	key := req.cacheKey()
	if cached, ok := runCache.Get(key); ok && !req.Force && cached.Fingerprint == fingerprint && filesExist(cached.Outputs.Rasters()...) {
		logger.Infow("outputs up to date, skipping run", "dll", cached.Outputs.DLL)
		cached.Cached = true
		return &cached, nil
	}

	in, err := loadInputs(ctx, req, files)
	if err != nil {
		return nil, err
	}
	logger.Infow("inputs loaded", "index_images", len(in.IndexImages), "start", req.StartDb8, "end", req.EndDb8)

	res, err := detection.Run(in, detection.Params{
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Window:             req.Window,
		Lookback:           req.Lookback,
		OmitStartThreshold: req.OmitStartThreshold,
		Workers:            req.Workers,
	})
	if err != nil {
		return nil, err
	}
	if res.Ensemble.UsedFallback {
		logger.Warnw("fewer than two yearly baseline images, using every in-window image", "baseline", len(res.Ensemble.Members))
	}
	if res.DegeneratePixels > 0 {
		logger.Warnw("pixels nulled by degenerate baseline statistics", "pixels", res.DegeneratePixels)
	}

	if err := writeOutputs(names, req, res); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(res.ClassCounts))
	for c, n := range res.ClassCounts {
		counts[strconv.Itoa(int(c))] = n
	}
	record := RunRecord{
		RunID:       runID,
		Scene:       req.Scene,
		Outputs:     names,
		ClassCounts: counts,
		Degenerate:  res.DegeneratePixels,
		Fingerprint: fingerprint,
	}

	if err := output.CreateRunLog(names.Log, buildRunLog(record, req, res, startedAt)); err != nil {
		logger.Warnw("failed to write run log", "error", err)
	}
	if err := runCache.Set(key, record); err != nil {
		logger.Warnw("failed to cache run record", "error", err)
	}
	logger.Infow("run finished", "dll", names.DLL, "dlj", names.DLJ, "duration", time.Since(startedAt))
	return &record, nil
}

// loadInputs reads the index images concurrently and the reflectance stacks
// and footprint afterwards. GDAL calls are serialized.
func loadInputs(ctx context.Context, req RunRequest, files []sentinel.SceneFile) (detection.Inputs, error) {
	var in detection.Inputs
	images := make([]raster.IndexImage, len(files))

	var bar *progressbar.ProgressBar
	if !req.Quiet {
		bar = progressbar.Default(int64(len(files)), "Reading index images")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(req.Workers, 1))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			utils.ExecuteWithMutex(func() {
				images[i], err = sentinel.ReadIndexImage(f, req.IndexKind)
			})
			if bar != nil {
				_ = bar.Add(1)
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return in, err
	}
	in.IndexImages = images

	var err error
	utils.ExecuteWithMutex(func() {
		in.StartStack, err = sentinel.ReadStack(req.StartDb8, req.StartDate)
	})
	if err != nil {
		return in, fmt.Errorf("start reflectance: %w", err)
	}
	utils.ExecuteWithMutex(func() {
		in.EndStack, err = sentinel.ReadStack(req.EndDb8, req.EndDate)
	})
	if err != nil {
		return in, fmt.Errorf("end reflectance: %w", err)
	}

	if req.Footprint != "" {
		var fp raster.Mask
		utils.ExecuteWithMutex(func() {
			fp, err = sentinel.LoadFootprint(req.Footprint, in.StartStack.Georef, in.StartStack.Rows(), in.StartStack.Cols())
		})
		if err != nil {
			return in, fmt.Errorf("footprint: %w", err)
		}
		in.Footprint = &fp
	}
	return in, nil
}

// removeRaster deletes an ENVI raster and its header.
func removeRaster(path string) {
	hdr := strings.TrimSuffix(path, filepath.Ext(path)) + ".hdr"
	for _, p := range []string{path, hdr, path + ".aux.xml"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warnf("failed to remove %s: %v", p, err)
		}
	}
}

func writeOutputs(names output.Names, req RunRequest, res *detection.Result) error {
	var err error
	utils.ExecuteWithMutex(func() {
		err = output.CreateChangeClassImage(names.DLL, res.Classes, res.Georef)
	})
	if err != nil {
		return err
	}
	utils.ExecuteWithMutex(func() {
		err = output.CreateInterpretationImage(names.DLJ, res.Interpretation, res.Georef)
	})
	if err != nil {
		removeRaster(names.DLL)
		removeRaster(names.DLJ)
		return err
	}

	if err := output.CreateClassSummary(names.Summary, output.SummarizeClasses(res.ClassCounts, res.Georef)); err != nil {
		return err
	}
	if req.Preview {
		if err := output.CreatePreviewImage(names.Preview, res.Classes, res.ClassCounts); err != nil {
			return err
		}
	}
	return nil
}

func buildRunLog(record RunRecord, req RunRequest, res *detection.Result, startedAt time.Time) output.RunLog {
	process := "fpc"
	if req.IndexKind == sentinel.IndexNDVI {
		process = "vi-ndvi"
	}
	var dates []string
	for _, d := range res.Ensemble.Dates() {
		dates = append(dates, d.Format("20060102"))
	}
	stretch := make(map[string]string, len(res.StretchStats))
	for band, s := range res.StretchStats {
		stretch[band] = s.String()
	}
	outputs := output.RunOutputs{DLL: record.Outputs.DLL, DLJ: record.Outputs.DLJ, Summary: record.Outputs.Summary}
	if req.Preview {
		outputs.Preview = record.Outputs.Preview
	}

	return output.RunLog{
		RunID:              record.RunID,
		Scene:              req.Scene,
		StartDate:          req.StartDate.Format("20060102"),
		EndDate:            req.EndDate.Format("20060102"),
		Process:            process,
		WindowStart:        req.Window.Start.String(),
		WindowEnd:          req.Window.End.String(),
		LookbackYears:      req.Lookback,
		OmitStartThreshold: req.OmitStartThreshold,
		BaselineDates:      dates,
		BaselineFallback:   res.Ensemble.UsedFallback,
		StartIndexDate:     res.StartIndexDate.Format("20060102"),
		EndIndexDate:       res.EndIndexDate.Format("20060102"),
		ClassCounts:        record.ClassCounts,
		DegeneratePixels:   res.DegeneratePixels,
		InputFingerprint:   record.Fingerprint,
		Outputs:            outputs,
		StartedAt:          startedAt,
		Duration:           time.Since(startedAt).Round(time.Millisecond).String(),
		Stretch:            stretch,
	}
}
