package ui

import (
	"fmt"

	"github.com/forest-guardian/eds-change-cli/internal/sentinel"
)

// ListScenes prints the scenes that have index images under the data folder
func ListScenes() {
	scenes, err := sentinel.ListScenes()
	if err != nil {
		PrintError(fmt.Sprintf("Error reading data folder: %s", err.Error()))
		return
	}
	if len(scenes) == 0 {
		PrintWarning("No scenes found. Scene folders live at 'data/<scene>' and hold 'lztmre_<scene>_<date>_dc4mz.img' files.")
		return
	}

	success.Println("\nAvailable scenes:")
	for _, s := range scenes {
		success.Printf("- %s\n", s)
	}
}

// ListSceneDates prints the dated index images of one scene
func ListSceneDates() {
	scene := ReadString("Enter the scene name: ")
	files, undated, err := sentinel.ListSceneFiles(sentinel.IndexGlob(scene))
	if err != nil {
		PrintError(err.Error())
		return
	}
	if len(files) == 0 {
		PrintWarning(fmt.Sprintf("No index images found for scene %s", scene))
		return
	}

	success.Printf("\n%d index images for %s:\n", len(files), scene)
	for _, f := range files {
		success.Printf("- %s\n", f.Date.Format("2006-01-02"))
	}
	for _, p := range undated {
		warn.Printf("- skipped, no date in name: %s\n", p)
	}
}
