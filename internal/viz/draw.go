package viz

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/camera"
	"github.com/san-kum/orbview/internal/field"
)

// Arrow lengths on the selected body, in sub-pixels.
const (
	VelocityArrowPx = 20
	AccelArrowPx    = 16
)

const (
	minBodyPx = 1
	maxBodyPx = 8
	// body radius exaggeration so planets stay visible at system scale
	radiusBoost = 15e6
)

// Frame is everything needed to draw one picture. Camera dimensions are in
// canvas sub-pixels.
type Frame struct {
	Camera   camera.Camera
	Bodies   []bodies.Body
	Trails   map[string][]bodies.Point
	Selected string
	Followed string
	Labels   bool

	Vectors        []field.Vector
	VectorSpacing  float64 // sub-pixels between samples
	Heatmap        *field.Heatmap
	Lagrange       map[string]field.Point
	LagrangeTarget string
}

// Draw renders f onto c, back to front.
func Draw(c *Canvas, f Frame, th Theme) {
	c.Clear()
	drawHeatmap(c, f, th)
	drawVectors(c, f, th)
	drawTrails(c, f)
	drawBodies(c, f, th)
	drawLagrange(c, f, th)
}

func (f *Frame) screen(x, y float64) (int, int) {
	sx, sy := f.Camera.WorldToScreen(x, y)
	return int(math.Round(sx)), int(math.Round(sy))
}

func drawHeatmap(c *Canvas, f Frame, th Theme) {
	hm := f.Heatmap
	if hm == nil || !(hm.Grid.Step > 0) {
		return
	}
	// min and max follow whatever is currently stored
	lo, hi, ok := hm.Range()
	if !ok {
		return
	}
	nx := len(hm.Values)
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			x, y := f.Camera.ScreenToWorld(float64(col*2)+1, float64(row*4)+2)
			i := int(math.Round((x - hm.Grid.XMin) / hm.Grid.Step))
			j := int(math.Round((y - hm.Grid.YMin) / hm.Grid.Step))
			if i < 0 || i >= nx || j < 0 || j >= len(hm.Values[i]) {
				continue
			}
			c.Fill(col, row, th.HeatColor(field.Normalize(hm.Values[i][j], lo, hi)))
		}
	}
}

func drawVectors(c *Canvas, f Frame, th Theme) {
	if len(f.Vectors) == 0 {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Vectors {
		if m := v.Magnitude(); m > 0 && !math.IsInf(m, 0) {
			lo, hi = math.Min(lo, m), math.Max(hi, m)
		}
	}
	length := f.VectorSpacing * 0.8
	if length < 2 {
		length = 2
	}
	for _, v := range f.Vectors {
		m := v.Magnitude()
		if !(m > 0) || math.IsInf(m, 0) {
			continue
		}
		sx, sy := f.screen(v.X, v.Y)
		ux, uy := v.GX/m, -v.GY/m
		ex := sx + int(math.Round(ux*length))
		ey := sy + int(math.Round(uy*length))
		arrow(c, sx, sy, ex, ey, th.FieldColor(field.Normalize(m, lo, hi)))
	}
}

// arrow draws a shaft with a two-stroke head at (x1, y1).
func arrow(c *Canvas, x0, y0, x1, y1 int, color lipgloss.Color) {
	c.DrawLineColor(x0, y0, x1, y1, color)
	dx, dy := float64(x1-x0), float64(y1-y0)
	l := math.Hypot(dx, dy)
	if l < 3 {
		return
	}
	head := math.Min(3, l/3)
	angle := math.Atan2(dy, dx)
	for _, a := range []float64{angle + 5*math.Pi/6, angle - 5*math.Pi/6} {
		hx := x1 + int(math.Round(head*math.Cos(a)))
		hy := y1 + int(math.Round(head*math.Sin(a)))
		c.DrawLineColor(x1, y1, hx, hy, color)
	}
}

func drawTrails(c *Canvas, f Frame) {
	for _, b := range f.Bodies {
		trail := f.Trails[b.Name]
		if len(trail) < 2 {
			continue
		}
		color := BodyColor(b.Color)
		if b.Name != f.Selected {
			color = Lerp(color, lipgloss.Color("#000000"), 0.6)
		}
		px, py := f.screen(trail[0].X, trail[0].Y)
		for _, p := range trail[1:] {
			x, y := f.screen(p.X, p.Y)
			if x != px || y != py {
				c.DrawLineColor(px, py, x, y, color)
			}
			px, py = x, y
		}
	}
}

// DisplayRadius exaggerates b's radius at scale and clamps it to [lo, hi]
// pixels.
func DisplayRadius(b bodies.Body, scale, lo, hi float64) float64 {
	r := b.Radius / scale * radiusBoost
	if math.IsNaN(r) || r < lo {
		return lo
	}
	return math.Min(r, hi)
}

func bodyRadius(b bodies.Body, scale float64) int {
	return int(DisplayRadius(b, scale, minBodyPx, maxBodyPx))
}

func disc(c *Canvas, cx, cy, r int, color lipgloss.Color) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.SetColor(cx+dx, cy+dy, color)
			}
		}
	}
}

func ring(c *Canvas, cx, cy, r int, color lipgloss.Color) {
	steps := 8 * r
	for k := 0; k < steps; k++ {
		a := 2 * math.Pi * float64(k) / float64(steps)
		c.SetColor(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))), color)
	}
}

func drawBodies(c *Canvas, f Frame, th Theme) {
	for _, b := range f.Bodies {
		sx, sy := f.screen(b.X, b.Y)
		r := bodyRadius(b, f.Camera.Scale)
		disc(c, sx, sy, r, BodyColor(b.Color))

		if b.Name == f.Selected {
			ring(c, sx, sy, r+2, th.Text)
			if v := b.Speed(); v > 0 {
				ex := sx + int(math.Round(b.VX/v*VelocityArrowPx))
				ey := sy - int(math.Round(b.VY/v*VelocityArrowPx))
				arrow(c, sx, sy, ex, ey, th.Text)
				c.Text(ex/2+1, ey/4, "v", th.Text)
			}
			if a := b.Accel(); a > 0 {
				ex := sx + int(math.Round(b.AX/a*AccelArrowPx))
				ey := sy - int(math.Round(b.AY/a*AccelArrowPx))
				arrow(c, sx, sy, ex, ey, th.Warning)
				c.Text(ex/2+1, ey/4, "a", th.Warning)
			}
		}

		if f.Labels {
			c.Text(sx/2+1, (sy-r)/4-1, b.Name, th.Text)
		}
	}
}

func drawLagrange(c *Canvas, f Frame, th Theme) {
	for _, name := range field.SortedNames(f.Lagrange) {
		p := f.Lagrange[name]
		sx, sy := f.screen(p.X, p.Y)
		c.DrawLineColor(sx-2, sy, sx+2, sy, th.Accent)
		c.DrawLineColor(sx, sy-2, sx, sy+2, th.Accent)
		c.Text(sx/2+1, sy/4, name, th.Accent)
	}
}
