package output

import (
	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

// CreateInterpretationImage writes the four band interpretation raster
// (DLJ) in the order spectralIndex, sTest, combinedIndex, clearingProb.
func CreateInterpretationImage(path string, interp change.Interpretation, georef raster.Georef) error {
	return createENVIImage(path, interp.Bands(), change.InterpretationBands, georef)
}
