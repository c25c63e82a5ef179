package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type RunOutputs struct {
	DLL     string `json:"dll"`
	DLJ     string `json:"dlj"`
	Summary string `json:"summary,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// RunLog is the provenance record written next to the rasters.
type RunLog struct {
	RunID              string            `json:"run_id"`
	Scene              string            `json:"scene"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	Process            string            `json:"process"`
	WindowStart        string            `json:"window_start"`
	WindowEnd          string            `json:"window_end"`
	LookbackYears      int               `json:"lookback_years"`
	OmitStartThreshold bool              `json:"omit_start_threshold"`
	BaselineDates      []string          `json:"baseline_dates"`
	BaselineFallback   bool              `json:"baseline_fallback"`
	StartIndexDate     string            `json:"start_index_date"`
	EndIndexDate       string            `json:"end_index_date"`
	ClassCounts        map[string]int    `json:"class_counts"`
	DegeneratePixels   int               `json:"degenerate_pixels"`
	InputFingerprint   string            `json:"input_fingerprint,omitempty"`
	Outputs            RunOutputs        `json:"outputs"`
	StartedAt          time.Time         `json:"started_at"`
	Duration           string            `json:"duration"`
	Stretch            map[string]string `json:"stretch,omitempty"`
}

func CreateRunLog(path string, log RunLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run log: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run log: %w", err)
	}
	return nil
}

func ReadRunLog(path string) (RunLog, error) {
	var log RunLog
	data, err := os.ReadFile(path)
	if err != nil {
		return log, err
	}
	if err := json.Unmarshal(data, &log); err != nil {
		return log, fmt.Errorf("failed to parse run log %s: %w", path, err)
	}
	return log, nil
}
