package export

import (
	"strings"
	"testing"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should give empty output")
	}

	c := viz.NewCanvas(2, 1)
	c.SetColor(0, 0, "#ff0000")
	c.Fill(1, 0, "#112233")
	svg := CanvasToSVG(c, 2)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatal("not an svg document")
	}
	if strings.Count(svg, "<circle") != 1 {
		t.Errorf("expected one dot, got %d", strings.Count(svg, "<circle"))
	}
	for _, want := range []string{`fill="#ff0000"`, `fill="#112233"`} {
		if !strings.Contains(svg, want) {
			t.Errorf("missing %s", want)
		}
	}
}

func TestHeatmapToSVG(t *testing.T) {
	hm := &field.Heatmap{
		Grid:   field.Grid{XMax: 1, YMax: 2, Step: 1},
		Values: [][]float64{{1, 10, 100}, {1, 10, 100}},
	}
	svg := HeatmapToSVG(hm, 4, viz.ThemeMinimal)
	// background plus one rect per sample
	if got := strings.Count(svg, "<rect"); got != 7 {
		t.Errorf("rects = %d, want 7", got)
	}
	if !strings.Contains(svg, `width="8" height="12"`) {
		t.Error("document size should follow the grid")
	}

	if HeatmapToSVG(&field.Heatmap{}, 4, viz.ThemeMinimal) != "" {
		t.Error("empty heatmap should give empty output")
	}
}

func TestTrailsToSVG(t *testing.T) {
	trails := map[string][]bodies.Point{
		"Earth": {{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}},
		"Mars":  {{X: 5, Y: 5}},
	}
	svg := TrailsToSVG(trails, map[string]string{"Earth": "#4da6ffff"}, 100, 100)
	if strings.Count(svg, "<path") != 1 {
		t.Error("single-point trails are skipped")
	}
	if !strings.Contains(svg, `stroke="#4da6ff"`) {
		t.Error("body colour should be used for the stroke")
	}
	if TrailsToSVG(nil, nil, 10, 10) != "" {
		t.Error("no trails should give empty output")
	}
}
