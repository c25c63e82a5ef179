package properties

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultLookback = 10

// Job describes one change detection run.
type Job struct {
	Scene              string `yaml:"scene"`
	StartDate          string `yaml:"startDate"`
	EndDate            string `yaml:"endDate"`
	WindowStart        string `yaml:"windowStart"`
	WindowEnd          string `yaml:"windowEnd"`
	Lookback           int    `yaml:"lookback"`
	OmitStartThreshold bool   `yaml:"omitStartThreshold"`
	IndexKind          string `yaml:"indexKind"`
	Dc4Glob            string `yaml:"dc4Glob"`
	StartDb8           string `yaml:"startDb8"`
	EndDb8             string `yaml:"endDb8"`
	Footprint          string `yaml:"footprint"`
	Preview            bool   `yaml:"preview"`
}

// JobFile is the batch file layout. Defaults fill any field a job leaves
// empty.
type JobFile struct {
	Defaults Job   `yaml:"defaults"`
	Jobs     []Job `yaml:"jobs"`
}

var ErrNoJobs = errors.New("job file contains no jobs")

// LoadJobs reads a YAML batch file and returns its jobs with defaults
// applied.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}
	return ParseJobs(data)
}

func ParseJobs(data []byte) ([]Job, error) {
	var f JobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing job file: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, ErrNoJobs
	}

	jobs := make([]Job, len(f.Jobs))
	for i, j := range f.Jobs {
		j = j.withDefaults(f.Defaults)
		if err := j.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs[i] = j
	}
	return jobs, nil
}

func (j Job) withDefaults(d Job) Job {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&j.Scene, d.Scene)
	fill(&j.StartDate, d.StartDate)
	fill(&j.EndDate, d.EndDate)
	fill(&j.WindowStart, d.WindowStart)
	fill(&j.WindowEnd, d.WindowEnd)
	fill(&j.IndexKind, d.IndexKind)
	fill(&j.Dc4Glob, d.Dc4Glob)
	fill(&j.Footprint, d.Footprint)
	if j.Lookback == 0 {
		j.Lookback = d.Lookback
	}
	if j.Lookback == 0 {
		j.Lookback = DefaultLookback
	}
	j.OmitStartThreshold = j.OmitStartThreshold || d.OmitStartThreshold
	j.Preview = j.Preview || d.Preview
	return j
}

// Validate checks the fields every run needs. Date formats are checked by
// the run itself.
func (j Job) Validate() error {
	switch {
	case j.Scene == "":
		return errors.New("scene is required")
	case j.StartDate == "":
		return errors.New("startDate is required")
	case j.EndDate == "":
		return errors.New("endDate is required")
	case j.Lookback < 0:
		return fmt.Errorf("lookback must be positive, got %d", j.Lookback)
	}
	return nil
}
