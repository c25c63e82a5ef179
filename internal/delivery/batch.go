package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/log"
	"github.com/forest-guardian/eds-change-cli/internal/notification"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
)

// BatchRow is one line of the batch report.
type BatchRow struct {
	Job       int    `csv:"job"`
	Scene     string `csv:"scene"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	Status    string `csv:"status"`
	DLL       string `csv:"dll"`
	Error     string `csv:"error"`
}

const (
	StatusDone    = "done"
	StatusCached  = "cached"
	StatusFailed  = "failed"
	StatusInvalid = "invalid"
)

type BatchOptions struct {
	OutputDir string
	Force     bool
	Quiet     bool
}

// runFunc is swapped in tests.
var runFunc = RunChangeDetection

// RunBatch runs every job of a job file in order. A failing job is reported
// and the batch moves on.
func RunBatch(ctx context.Context, jobsPath string, opts BatchOptions) ([]BatchRow, error) {
	jobs, err := properties.LoadJobs(jobsPath)
	if err != nil {
		return nil, err
	}
	rows := RunJobs(ctx, jobs, opts)

	reportDir := opts.OutputDir
	if reportDir == "" {
		reportDir = filepath.Dir(jobsPath)
	}
	report := filepath.Join(reportDir, fmt.Sprintf("batch_report_%s.csv", time.Now().Format("20060102T150405")))
	if err := writeBatchReport(report, rows); err != nil {
		log.Warnf("failed to write batch report %s: %v", report, err)
	} else {
		log.Infof("batch report written to %s", report)
	}

	if err := notification.SendDiscordSuccessNotification("Change detection batch finished", summarize(rows)); err != nil {
		log.Warnf("failed to send batch notification: %v", err)
	}
	return rows, nil
}

func writeBatchReport(path string, rows []BatchRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.MarshalFile(&rows, file)
}

// RunJobs executes jobs sequentially and reports one row per job.
func RunJobs(ctx context.Context, jobs []properties.Job, opts BatchOptions) []BatchRow {
	var bar *progressbar.ProgressBar
	if !opts.Quiet {
		bar = progressbar.Default(int64(len(jobs)), "Running jobs")
	}

	rows := make([]BatchRow, 0, len(jobs))
	for i, job := range jobs {
		row := BatchRow{Job: i + 1, Scene: job.Scene, StartDate: job.StartDate, EndDate: job.EndDate}
		rows = append(rows, runJob(ctx, job, opts, row))
		if bar != nil {
			_ = bar.Add(1)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return rows
}

func runJob(ctx context.Context, job properties.Job, opts BatchOptions, row BatchRow) BatchRow {
	req, err := RequestFromJob(job)
	if err != nil {
		log.Errorw("invalid job", "job", row.Job, "scene", job.Scene, "error", err)
		row.Status, row.Error = StatusInvalid, err.Error()
		return row
	}
	req.OutputDir = opts.OutputDir
	req.Force = opts.Force
	req.Quiet = true

	record, err := runFunc(ctx, req)
	if err != nil {
		log.Errorw("job failed", "job", row.Job, "scene", job.Scene, "error", err)
		row.Status, row.Error = StatusFailed, err.Error()
		return row
	}
	row.Status = StatusDone
	if record.Cached {
		row.Status = StatusCached
	}
	row.DLL = record.Outputs.DLL
	return row
}

func summarize(rows []BatchRow) [][2]string {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Status]++
	}
	return [][2]string{
		{"Jobs", fmt.Sprint(len(rows))},
		{"Done", fmt.Sprint(counts[StatusDone])},
		{"Cached", fmt.Sprint(counts[StatusCached])},
		{"Failed", fmt.Sprint(counts[StatusFailed] + counts[StatusInvalid])},
	}
}
