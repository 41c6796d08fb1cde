package gui

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/san-kum/orbview/internal/viz"
)

// Arrow lengths on the selected body, in pixels.
const (
	velocityArrowPx = 50
	accelArrowPx    = 40

	minBodyPx = 2
	maxBodyPx = 20
)

var colBg = rl.NewColor(10, 10, 10, 255)

func col(c lipgloss.Color, alpha uint8) rl.Color {
	r, g, b := viz.RGB(c)
	return rl.NewColor(r, g, b, alpha)
}

func vec(x, y float64) rl.Vector2 { return rl.NewVector2(float32(x), float32(y)) }

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(colBg)

	f := a.sess.Frame()
	drawHeatmap(f, a.theme)
	drawVectors(f, a.theme)
	drawTrails(f)
	drawBodies(f, a.theme)
	drawLagrange(f, a.theme)
	a.drawPanel()

	rl.EndDrawing()
}

func drawHeatmap(f viz.Frame, th viz.Theme) {
	hm := f.Heatmap
	if hm == nil || !(hm.Grid.Step > 0) {
		return
	}
	lo, hi, ok := hm.Range()
	if !ok {
		return
	}
	size := hm.Grid.Step / f.Camera.Scale
	w, h := float64(f.Camera.Width), float64(f.Camera.Height)
	for i, column := range hm.Values {
		for j, v := range column {
			x, y := hm.Cell(i, j)
			sx, sy := f.Camera.WorldToScreen(x, y)
			if sx+size < 0 || sy+size < 0 || sx-size > w || sy-size > h {
				continue
			}
			rl.DrawRectangle(int32(sx-size/2), int32(sy-size/2), int32(math.Ceil(size)), int32(math.Ceil(size)),
				col(th.HeatColor(field.Normalize(v, lo, hi)), 200))
		}
	}
}

func arrow(x0, y0, x1, y1 float64, c rl.Color) {
	rl.DrawLineEx(vec(x0, y0), vec(x1, y1), 1.5, c)
	l := math.Hypot(x1-x0, y1-y0)
	if l < 4 {
		return
	}
	head := math.Min(8, l/3)
	angle := math.Atan2(y1-y0, x1-x0)
	for _, da := range []float64{5 * math.Pi / 6, -5 * math.Pi / 6} {
		rl.DrawLineEx(vec(x1, y1), vec(x1+head*math.Cos(angle+da), y1+head*math.Sin(angle+da)), 1.5, c)
	}
}

func drawVectors(f viz.Frame, th viz.Theme) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Vectors {
		if m := v.Magnitude(); m > 0 && !math.IsInf(m, 0) {
			lo, hi = math.Min(lo, m), math.Max(hi, m)
		}
	}
	length := math.Max(f.VectorSpacing*0.8, 4)
	for _, v := range f.Vectors {
		m := v.Magnitude()
		if !(m > 0) || math.IsInf(m, 0) {
			continue
		}
		sx, sy := f.Camera.WorldToScreen(v.X, v.Y)
		arrow(sx, sy, sx+v.GX/m*length, sy-v.GY/m*length, col(th.FieldColor(field.Normalize(m, lo, hi)), 255))
	}
}

func drawTrails(f viz.Frame) {
	for _, b := range f.Bodies {
		trail := f.Trails[b.Name]
		if len(trail) < 2 {
			continue
		}
		alpha := uint8(90)
		if b.Name == f.Selected {
			alpha = 220
		}
		points := make([]rl.Vector2, len(trail))
		for i, p := range trail {
			points[i] = vec(f.Camera.WorldToScreen(p.X, p.Y))
		}
		rl.DrawLineStrip(points, col(viz.BodyColor(b.Color), alpha))
	}
}

func drawBodies(f viz.Frame, th viz.Theme) {
	text := col(th.Text, 255)
	for _, b := range f.Bodies {
		sx, sy := f.Camera.WorldToScreen(b.X, b.Y)
		r := viz.DisplayRadius(b, f.Camera.Scale, minBodyPx, maxBodyPx)
		rl.DrawCircleV(vec(sx, sy), float32(r), col(viz.BodyColor(b.Color), 255))

		if b.Name == f.Selected {
			rl.DrawCircleLines(int32(sx), int32(sy), float32(r+4), text)
			if v := b.Speed(); v > 0 {
				arrow(sx, sy, sx+b.VX/v*velocityArrowPx, sy-b.VY/v*velocityArrowPx, text)
			}
			if acc := b.Accel(); acc > 0 {
				arrow(sx, sy, sx+b.AX/acc*accelArrowPx, sy-b.AY/acc*accelArrowPx, col(th.Warning, 255))
			}
		}
		if f.Labels {
			rl.DrawText(b.Name, int32(sx+r+3), int32(sy-r-12), 12, text)
		}
	}
}

func drawLagrange(f viz.Frame, th viz.Theme) {
	c := col(th.Accent, 255)
	for _, name := range field.SortedNames(f.Lagrange) {
		p := f.Lagrange[name]
		sx, sy := f.Camera.WorldToScreen(p.X, p.Y)
		rl.DrawLineEx(vec(sx-5, sy), vec(sx+5, sy), 1.5, c)
		rl.DrawLineEx(vec(sx, sy-5), vec(sx, sy+5), 1.5, c)
		rl.DrawText(name, int32(sx+6), int32(sy+4), 10, c)
	}
}

func (a *App) drawPanel() {
	x := int32(rl.GetScreenWidth() - panelWidth)
	h := int32(rl.GetScreenHeight())
	rl.DrawRectangle(x, 0, panelWidth, h, rl.NewColor(18, 18, 18, 255))
	rl.DrawLine(x, 0, x, h, col(a.theme.Muted, 255))

	label, value := col(a.theme.Muted, 255), col(a.theme.Text, 255)
	y := int32(20)
	line := func(k, v string) {
		rl.DrawText(k, x+16, y, 14, label)
		rl.DrawText(v, x+110, y, 14, value)
		y += 20
	}

	rl.DrawText("ORBVIEW", x+16, y, 22, col(a.theme.Primary, 255))
	y += 32
	switch {
	case a.connErr != nil:
		rl.DrawText("offline", x+16, y, 14, col(a.theme.Error, 255))
	case a.sess.Cache().Len() == 0:
		rl.DrawText("waiting", x+16, y, 14, col(a.theme.Warning, 255))
	default:
		rl.DrawText("live", x+16, y, 14, col(a.theme.Success, 255))
	}
	y += 28

	line("time", a.sess.SimTime())
	line("scale", fmt.Sprintf("x%g", a.sess.TimeScale()))
	line("bodies", fmt.Sprintf("%d", a.sess.Cache().Len()))
	line("m/px", fmt.Sprintf("%.3g", a.sess.Camera().Scale))
	if name, ok := a.sess.Followed(); ok {
		line("follow", name)
	}
	y += 12

	if info, ok := a.sess.Info(); ok {
		rl.DrawText(info.Name, x+16, y, 18, col(a.theme.Secondary, 255))
		y += 26
		line("dist", fmt.Sprintf("%.4f AU", info.DistPrimaryAU))
		if info.HasEarth {
			line("earth", fmt.Sprintf("%.4f AU", info.DistEarthAU))
		}
		line("speed", fmt.Sprintf("%.2f km/s", info.Speed/1e3))
		line("accel", fmt.Sprintf("%.3e m/s2", info.Accel))
		line("mass", fmt.Sprintf("%.3e kg", info.Mass))
		line("diameter", fmt.Sprintf("%.0f km", info.Diameter/1e3))
		y = a.drawHistory(x+16, y+8, panelWidth-32, 60)
	} else {
		rl.DrawText("no selection", x+16, y, 14, label)
		y += 20
	}
	y += 12

	for _, kind := range field.Kinds {
		st := a.sess.Scheduler().State(kind)
		line(kind.String(), fieldState(st))
	}

	if a.status != "" {
		rl.DrawText(a.status, x+16, h-48, 14, label)
	}
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), x+16, h-24, 12, label)
}

// drawHistory plots the selected body's recent |a| and returns the y below
// the chart.
func (a *App) drawHistory(x, y, w, h int32) int32 {
	hist := a.sess.History()
	if len(hist) < 2 {
		return y
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range hist {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	points := make([]rl.Vector2, len(hist))
	for i, v := range hist {
		px := float64(x) + float64(i)/float64(len(hist)-1)*float64(w)
		py := float64(y+h) - (v-lo)/span*float64(h)
		points[i] = vec(px, py)
	}
	rl.DrawRectangleLines(x, y, w, h, col(a.theme.Muted, 255))
	rl.DrawLineStrip(points, col(a.theme.Secondary, 255))
	return y + h + 4
}

func fieldState(st scheduler.SlotState) string {
	switch {
	case !st.Enabled:
		return "off"
	case st.LastError != nil:
		return "error"
	case st.Busy():
		return st.Phase.String()
	case st.Dirty:
		return "stale"
	}
	return "ok"
}
