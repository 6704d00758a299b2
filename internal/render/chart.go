// Package render draws AHU schedules as PNG run charts.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/lox/campuswatt/internal/models"
	"github.com/lox/campuswatt/internal/schedule"
)

const (
	labelWidth = 110
	cellWidth  = 28
	rowHeight  = 34
	headerH    = 56
	footerH    = 30
	padding    = 16
)

var (
	colorBackground = color.RGBA{24, 26, 38, 255}
	colorOn         = color.RGBA{46, 160, 98, 255}
	colorOff        = color.RGBA{58, 62, 80, 255}
	colorClass      = color.RGBA{242, 201, 76, 255}
	colorText       = color.RGBA{230, 230, 235, 255}
	colorMuted      = color.RGBA{150, 152, 165, 255}
)

var (
	fontTitle font.Face
	fontSmall font.Face
	fontOnce  sync.Once
	fontErr   error
)

func loadFonts() {
	fontOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("parse goregular: %w", err)
			return
		}
		fontTitle, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 18, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			fontErr = fmt.Errorf("create title face: %w", err)
			return
		}
		fontSmall, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 11, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			fontErr = fmt.Errorf("create small face: %w", err)
		}
	})
}

type Chart struct {
	Title string
	// Window is the number of slots drawn from 07:00.
	Window int
	Units  []Row
}

type Row struct {
	Name string
	Runs []models.CompressedRun
}

// Size returns the pixel dimensions RunChart will produce for c.
func (c Chart) Size() (int, int) {
	w := schedule.NormalizeWindow(c.Window)
	return padding*2 + labelWidth + w*cellWidth, headerH + len(c.Units)*rowHeight + footerH + padding
}

// RunChart draws one row per unit with a cell per half-hour slot: green when
// the unit runs, grey when off, and a yellow bar under slots with a class.
func RunChart(c Chart) ([]byte, error) {
	loadFonts()
	if fontErr != nil {
		return nil, fmt.Errorf("load fonts: %w", fontErr)
	}

	window := schedule.NormalizeWindow(c.Window)
	width, height := c.Size()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	drawText(img, c.Title, padding, 28, colorText, fontTitle)

	gridX := padding + labelWidth
	for i := 0; i < window; i += 2 {
		drawText(img, schedule.SlotAt(i).String(), gridX+i*cellWidth, headerH-8, colorMuted, fontSmall)
	}

	for r, row := range c.Units {
		y := headerH + r*rowHeight
		drawText(img, row.Name, padding, y+rowHeight/2+4, colorText, fontSmall)
		for _, run := range row.Runs {
			fill := colorOff
			if run.ShouldBeOn {
				fill = colorOn
			}
			for i := run.StartSlot; i <= run.EndSlot && i < window; i++ {
				x := gridX + i*cellWidth
				fillRect(img, x+1, y+2, x+cellWidth-1, y+rowHeight-6, fill)
				if run.HasActiveClass {
					fillRect(img, x+1, y+rowHeight-5, x+cellWidth-1, y+rowHeight-2, colorClass)
				}
			}
		}
	}

	legendY := height - padding
	fillRect(img, padding, legendY-10, padding+12, legendY, colorOn)
	drawText(img, "on", padding+16, legendY, colorMuted, fontSmall)
	fillRect(img, padding+50, legendY-10, padding+62, legendY, colorOff)
	drawText(img, "off", padding+66, legendY, colorMuted, fontSmall)
	fillRect(img, padding+100, legendY-4, padding+112, legendY, colorClass)
	drawText(img, "class in session", padding+116, legendY, colorMuted, fontSmall)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode run chart: %w", err)
	}
	return buf.Bytes(), nil
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(col), image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, text string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
