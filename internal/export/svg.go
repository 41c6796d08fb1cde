package export

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/viz"
)

const background = "#0a0a0a"

// CanvasToSVG converts a Braille canvas to SVG, keeping cell colours.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2   // 2 sub-pixels per char
	height := float64(canvas.Height) * scale * 4 // 4 sub-pixels per char

	var sb strings.Builder
	header(&sb, width, height)

	// Braille dot-to-bit mapping
	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}

	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			fg, bg := canvas.Colors(col, row)
			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4

			if bg != "" {
				fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, baseX, baseY, scale*2, scale*4, bg)
			}

			r := canvas.Grid[row][col]
			if r <= 0x2800 {
				continue
			}
			pattern := int(r - 0x2800)
			if fg == "" {
				fg = "#00ff00"
			}

			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] != 0 {
						cx := baseX + float64(dx)*scale + scale/2
						cy := baseY + float64(dy)*scale + scale/2
						fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, dotRadius, fg)
					}
				}
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// HeatmapToSVG renders a heatmap with one square per sample, log-coloured
// with the theme's heat ramp. North is up.
func HeatmapToSVG(hm *field.Heatmap, cellPx int, th viz.Theme) string {
	if hm.Len() == 0 || cellPx <= 0 {
		return ""
	}
	lo, hi, _ := hm.Range()
	nx := len(hm.Values)
	ny := len(hm.Values[0])
	width, height := float64(nx*cellPx), float64(ny*cellPx)

	var sb strings.Builder
	header(&sb, width, height)
	for i, col := range hm.Values {
		for j, v := range col {
			x := i * cellPx
			y := (ny - 1 - j) * cellPx
			fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>
`, x, y, cellPx, cellPx, th.HeatColor(field.Normalize(v, lo, hi)))
		}
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// TrailsToSVG draws body trails fitted to the canvas, one path per body.
func TrailsToSVG(trails map[string][]bodies.Point, colors map[string]string, width, height int) string {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, pts := range trails {
		for _, p := range pts {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 0) {
		return ""
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, float64(width), float64(height))

	for _, name := range slices.Sorted(maps.Keys(trails)) {
		pts := trails[name]
		if len(pts) < 2 {
			continue
		}
		stroke := string(viz.BodyColor(colors[name]))
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
		for i, p := range pts {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func header(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}
