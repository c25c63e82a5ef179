package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Names are the files produced by one run.
type Names struct {
	DLL     string `json:"dll"`
	DLJ     string `json:"dlj"`
	Log     string `json:"log"`
	Summary string `json:"summary"`
	Preview string `json:"preview"`
}

// BuildNames lays out the output files of a run in dir. NDVI runs carry a
// vi-ndvi tag so they never overwrite cover based results.
func BuildNames(dir, scene string, start, end time.Time, ndvi bool) Names {
	base := fmt.Sprintf("lztmre_%s_d%s%s", scene, start.Format("20060102"), end.Format("20060102"))
	if ndvi {
		base += "_vi-ndvi"
	}
	dll := filepath.Join(dir, base+"_dllmz.img")
	stem := strings.TrimSuffix(dll, filepath.Ext(dll))
	return Names{
		DLL:     dll,
		DLJ:     filepath.Join(dir, base+"_dljmz.img"),
		Log:     stem + "_log.json",
		Summary: stem + "_summary.csv",
		Preview: stem + "_preview.png",
	}
}

func (n Names) Rasters() []string {
	return []string{n.DLL, n.DLJ}
}
