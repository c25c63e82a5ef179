package properties

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func DataPath() string {
	return filepath.Join(RootPath(), "data")
}

// OutputPath is where result rasters are written. Empty means next to the
// start reflectance stack.
func OutputPath() string {
	return os.Getenv("EDS_OUTPUT_DIR")
}

func CachePath() string {
	return filepath.Join(RootPath(), "data", "cache")
}

func Workers() int {
	n, err := strconv.Atoi(os.Getenv("EDS_WORKERS"))
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func LogFile() string {
	return os.Getenv("EDS_LOG_FILE")
}

func Debug() bool {
	v, _ := strconv.ParseBool(os.Getenv("EDS_DEBUG"))
	return v
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}
func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

type Color struct {
	R, G, B, A uint8
}

// ColorMap is the display palette of the change classes.
var ColorMap = map[uint8]Color{
	0:  {0, 0, 0, 0},
	3:  {0, 200, 200, 255},
	10: {200, 200, 200, 255},
	34: {255, 255, 0, 255},
	35: {255, 200, 0, 255},
	36: {255, 150, 0, 255},
	37: {255, 100, 0, 255},
	38: {255, 0, 0, 255},
	39: {200, 0, 200, 255},
}
