package output

import (
	"fmt"
	"math"
	"os"

	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
	"github.com/gocarina/gocsv"
)

type ClassSummaryRow struct {
	Class    uint8   `csv:"class"`
	Label    string  `csv:"label"`
	Pixels   int     `csv:"pixels"`
	Percent  float64 `csv:"percent"`
	Hectares float64 `csv:"hectares"`
}

// PixelHectares is the ground area of one pixel, or 0 when the grid has no
// geotransform.
func PixelHectares(g raster.Georef) float64 {
	if !g.HasTransform {
		return 0
	}
	gt := g.GeoTransform
	return math.Abs(gt[1]*gt[5]-gt[2]*gt[4]) / 10000
}

// SummarizeClasses turns class counts into one row per class of the fixed
// class set, in class order.
func SummarizeClasses(counts map[change.Class]int, g raster.Georef) []ClassSummaryRow {
	total := 0
	for _, n := range counts {
		total += n
	}
	ha := PixelHectares(g)

	rows := make([]ClassSummaryRow, 0, len(change.Classes))
	for _, c := range change.Classes {
		n := counts[c]
		row := ClassSummaryRow{Class: uint8(c), Label: c.String(), Pixels: n, Hectares: float64(n) * ha}
		if total > 0 {
			row.Percent = 100 * float64(n) / float64(total)
		}
		rows = append(rows, row)
	}
	return rows
}

func CreateClassSummary(path string, rows []ClassSummaryRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create class summary file: %w", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to save class summary: %w", err)
	}
	return nil
}
