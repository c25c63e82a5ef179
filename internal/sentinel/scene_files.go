package sentinel

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/forest-guardian/eds-change-cli/internal/properties"
)

var dateInName = regexp.MustCompile(`(19|20)\d{6}`)

// ParseDate pulls the first YYYYMMDD date out of a file's base name.
func ParseDate(path string) (time.Time, error) {
	m := dateInName.FindString(filepath.Base(path))
	if m == "" {
		return time.Time{}, fmt.Errorf("no date in file name %s", path)
	}
	t, err := time.Parse("20060102", m)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %s in file name %s: %w", m, path, err)
	}
	return t, nil
}

// SceneFile is a dated raster belonging to a scene.
type SceneFile struct {
	Path string
	Date time.Time
}

// ListSceneFiles resolves a glob into dated files, oldest first. Files whose
// name carries no date are returned separately.
func ListSceneFiles(pattern string) ([]SceneFile, []string, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid glob %s: %w", pattern, err)
	}

	var files []SceneFile
	var undated []string
	for _, p := range paths {
		d, err := ParseDate(p)
		if err != nil {
			undated = append(undated, p)
			continue
		}
		files = append(files, SceneFile{Path: p, Date: d})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].Date.Equal(files[j].Date) {
			return files[i].Date.Before(files[j].Date)
		}
		return files[i].Path < files[j].Path
	})
	return files, undated, nil
}

func SceneDir(scene string) string {
	return filepath.Join(properties.DataPath(), scene)
}

func IndexGlob(scene string) string {
	return filepath.Join(SceneDir(scene), fmt.Sprintf("lztmre_%s_*_dc4mz.img", scene))
}

func ReflectancePath(scene string, date time.Time) string {
	return filepath.Join(SceneDir(scene), fmt.Sprintf("lztmre_%s_%s_db8mz.img", scene, date.Format("20060102")))
}

// ListScenes returns the scene directories found under the data path.
func ListScenes() ([]string, error) {
	entries, err := filepath.Glob(filepath.Join(properties.DataPath(), "*", "lztmre_*_dc4mz.img"))
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var scenes []string
	for _, e := range entries {
		scene := filepath.Base(filepath.Dir(e))
		if !seen[scene] {
			seen[scene] = true
			scenes = append(scenes, scene)
		}
	}
	sort.Strings(scenes)
	return scenes, nil
}
