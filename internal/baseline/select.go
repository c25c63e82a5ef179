package baseline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/forest-guardian/eds-change-cli/internal/utils"
)

// MinEnsembleSize is the smallest baseline the statistics can be fitted on.
const MinEnsembleSize = 2

var (
	ErrInvalidLookback = errors.New("lookback must be at least one year")
	ErrNoIndexImage    = errors.New("no index image available inside the seasonal window")
)

// InsufficientBaselineError is returned when fewer than two baseline images
// survive the seasonal filtering, even after the fallback.
type InsufficientBaselineError struct {
	Found  int
	Window Window
	Start  time.Time
}

func (e *InsufficientBaselineError) Error() string {
	return fmt.Sprintf("baseline too small: %d image(s) within window %s up to %s, need at least %d",
		e.Found, e.Window, e.Start.Format("2006-01-02"), MinEnsembleSize)
}

// Ensemble is the chronological set of images characterising the normal
// seasonal condition before the start date.
type Ensemble struct {
	Members      []raster.IndexImage
	UsedFallback bool
}

func (e Ensemble) Dates() []time.Time {
	dates := make([]time.Time, len(e.Members))
	for i, m := range e.Members {
		dates[i] = m.Date
	}
	return dates
}

func (e Ensemble) Len() int {
	return len(e.Members)
}

// sortCandidates orders candidates by date then path so that selection does
// not depend on the order files were listed in.
func sortCandidates(candidates []raster.IndexImage) []raster.IndexImage {
	sorted := append([]raster.IndexImage(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Path < sorted[j].Path
	})
	return sorted
}

// inWindowUpTo keeps candidates inside the window dated on or before start.
func inWindowUpTo(candidates []raster.IndexImage, w Window, start time.Time) []raster.IndexImage {
	cutoff := dateOnly(start)
	var kept []raster.IndexImage
	for _, c := range candidates {
		if dateOnly(c.Date).After(cutoff) {
			continue
		}
		if !w.Contains(c.Date) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Select builds the baseline ensemble: at most one image per calendar year
// over the last lookback years up to and including the start year, each the
// closest to the end of the window. When that yields fewer than two images
// every in-window image up to the start date is used instead.
func Select(candidates []raster.IndexImage, w Window, lookback int, start time.Time) (Ensemble, error) {
	if lookback < 1 {
		return Ensemble{}, ErrInvalidLookback
	}
	if w.End.Before(w.Start) {
		return Ensemble{}, ErrWindowWraps
	}

	eligible := inWindowUpTo(sortCandidates(candidates), w, start)

	byYear := make(map[int]raster.IndexImage)
	for _, c := range eligible {
		y := c.Date.Year()
		if y < start.Year()-lookback+1 || y > start.Year() {
			continue
		}
		current, ok := byYear[y]
		if !ok || closerToWindowEnd(c, current, w) {
			byYear[y] = c
		}
	}

	var members []raster.IndexImage
	for _, y := range utils.GetSortedKeys(byYear, true) {
		members = append(members, byYear[y])
	}
	if len(members) >= MinEnsembleSize {
		return Ensemble{Members: members}, nil
	}

	if len(eligible) >= MinEnsembleSize {
		return Ensemble{Members: eligible, UsedFallback: true}, nil
	}
	return Ensemble{}, &InsufficientBaselineError{Found: len(eligible), Window: w, Start: start}
}

// closerToWindowEnd reports whether a should replace b as its year's pick.
// Ties go to the later date.
func closerToWindowEnd(a, b raster.IndexImage, w Window) bool {
	da := daysBetween(w.End.In(a.Date.Year()), a.Date)
	db := daysBetween(w.End.In(b.Date.Year()), b.Date)
	if da != db {
		return da < db
	}
	return a.Date.After(b.Date)
}

// SelectNearest picks the image for a target date: an exact date match if
// one exists, otherwise the in-window image nearest in calendar days, the
// earlier one on ties.
func SelectNearest(candidates []raster.IndexImage, target time.Time, w Window) (raster.IndexImage, error) {
	sorted := sortCandidates(candidates)
	for _, c := range sorted {
		if dateOnly(c.Date).Equal(dateOnly(target)) {
			return c, nil
		}
	}

	best := -1
	bestDist := 0
	for i, c := range sorted {
		if !w.Contains(c.Date) {
			continue
		}
		dist := daysBetween(c.Date, target)
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return raster.IndexImage{}, fmt.Errorf("target %s, window %s: %w", target.Format("2006-01-02"), w, ErrNoIndexImage)
	}
	return sorted[best], nil
}
