package output

import (
	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

// CreateChangeClassImage writes the single band change class raster (DLL).
func CreateChangeClassImage(path string, classes raster.ByteBand, georef raster.Georef) error {
	return createENVIImage(path, []raster.ByteBand{classes}, []string{"changeClass"}, georef)
}
