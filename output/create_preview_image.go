package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/eds-change-cli/internal/change"
	"github.com/forest-guardian/eds-change-cli/internal/properties"
	"github.com/forest-guardian/eds-change-cli/internal/raster"
)

const legendRowHeight = 20

// RenderPreview paints the class raster with the class palette and appends
// a legend of the classes present.
func RenderPreview(classes raster.ByteBand, counts map[change.Class]int) image.Image {
	var present []change.Class
	for _, c := range change.Classes {
		if c != change.ClassNull && counts[c] > 0 {
			present = append(present, c)
		}
	}

	width := classes.Cols
	if width < 200 {
		width = 200
	}
	legendHeight := legendRowHeight*len(present) + 10
	height := classes.Rows + legendHeight

	img := image.NewRGBA(image.Rect(0, 0, classes.Cols, classes.Rows))
	for r := 0; r < classes.Rows; r++ {
		for c := 0; c < classes.Cols; c++ {
			col := properties.ColorMap[classes.At(r, c)]
			img.Set(c, r, color.RGBA{R: col.R, G: col.G, B: col.B, A: col.A})
		}
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(img, 0, 0)

	for i, c := range present {
		y := float64(classes.Rows + 5 + i*legendRowHeight)
		col := properties.ColorMap[uint8(c)]
		dc.SetRGB255(int(col.R), int(col.G), int(col.B))
		dc.DrawRectangle(10, y, 15, 15)
		dc.Fill()

		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(10, y, 15, 15)
		dc.SetLineWidth(1)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%d %s (%d)", c, c, counts[c]), 30, y+7, 0, 0.5)
	}
	return dc.Image()
}

func CreatePreviewImage(path string, classes raster.ByteBand, counts map[change.Class]int) error {
	if err := gg.SavePNG(path, RenderPreview(classes, counts)); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
