package utils

import (
	"runtime"

	"github.com/gammazero/workerpool"
)

// DefaultBlockRows is the number of raster rows handed to a worker at once.
const DefaultBlockRows = 64

// ForEachRowBlock splits [0, rows) into contiguous row blocks and runs fn on
// each of them in a pool of workers. fn must only write to the rows it is
// given. It returns once every block is done.
func ForEachRowBlock(rows, workers int, fn func(rowStart, rowEnd int)) {
	if rows <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers == 1 || rows <= DefaultBlockRows {
		fn(0, rows)
		return
	}

	wp := workerpool.New(workers)
	for start := 0; start < rows; start += DefaultBlockRows {
		end := start + DefaultBlockRows
		if end > rows {
			end = rows
		}
		s, e := start, end
		wp.Submit(func() {
			fn(s, e)
		})
	}
	wp.StopWait()
}
