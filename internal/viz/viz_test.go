package viz

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/camera"
	"github.com/san-kum/orbview/internal/field"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	if c.Grid[0][0] != blank|0x1 {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != blank|0x80 {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}

	c.Unset(0, 0)
	if c.Grid[0][0] != blank {
		t.Errorf("unset left %U", c.Grid[0][0])
	}

	// out of range is ignored
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
}

func TestCanvasTextOverlay(t *testing.T) {
	c := NewCanvas(6, 2)
	c.Text(4, 1, "Earth", "#ffffff")
	lines := strings.Split(c.String(), "\n")
	if !strings.HasSuffix(lines[1], "Ea") {
		t.Errorf("text should be clipped at the edge, got %q", lines[1])
	}
	if !strings.Contains(c.Render(), "E") {
		t.Error("render lost the overlay")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 1)
	c.DrawLine(0, 0, 7, 0)
	for col := 0; col < 4; col++ {
		if c.Grid[0][col] != blank|0x1|0x8 {
			t.Errorf("cell %d = %U", col, c.Grid[0][col])
		}
	}
}

func TestCanvasDrawLineClipsLongSegments(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		want           []rune
	}{
		{"horizontal", -1_000_000, 2, 1_000_000, 2, []rune{0x4 | 0x20, 0x4 | 0x20, 0x4 | 0x20, 0x4 | 0x20}},
		{"diagonal", -1000, -1000, 1000, 1000, []rune{0x1 | 0x10, 0x4 | 0x80, 0, 0}},
		{"outside", -10, -10, -1, 20, []rune{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCanvas(4, 1)
			c.DrawLine(tt.x0, tt.y0, tt.x1, tt.y1)
			for col, bits := range tt.want {
				if got := c.Grid[0][col]; got != blank|bits {
					t.Errorf("cell %d = %U, want %U", col, got, blank|bits)
				}
			}
		})
	}
}

func TestLerp(t *testing.T) {
	tests := []struct {
		a, b string
		t    float64
		want string
	}{
		{"#000000", "#ffffff", 0, "#000000"},
		{"#000000", "#ffffff", 1, "#ffffff"},
		{"#000000", "#ff0000", 0.5, "#800000"},
		{"#000000", "#ffffff", 7, "#ffffff"},
	}
	for _, tt := range tests {
		if got := string(Lerp(lipgloss.Color(tt.a), lipgloss.Color(tt.b), tt.t)); got != tt.want {
			t.Errorf("Lerp(%s, %s, %v) = %s, want %s", tt.a, tt.b, tt.t, got, tt.want)
		}
	}
}

func TestBodyColor(t *testing.T) {
	if got := BodyColor("#ffff00ff"); got != "#ffff00" {
		t.Errorf("alpha not stripped: %s", got)
	}
	if got := BodyColor("yellow"); got != "#ffffff" {
		t.Errorf("fallback = %s", got)
	}
}

func TestRGB(t *testing.T) {
	r, g, b := RGB("#4da6ff")
	if r != 0x4d || g != 0xa6 || b != 0xff {
		t.Errorf("RGB = %d,%d,%d", r, g, b)
	}
	if r, g, b := RGB("blue"); r != 255 || g != 255 || b != 255 {
		t.Errorf("fallback = %d,%d,%d", r, g, b)
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("unknown theme should fall back to cyberpunk")
	}
	if NextTheme("sunset").Name != "cyberpunk" {
		t.Error("theme cycle should wrap")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
}

func testFrame() Frame {
	cam := camera.New(1, 80, 40)
	return Frame{
		Camera: *cam,
		Bodies: []bodies.Body{
			{Name: "Sun", Mass: 1, Radius: 1, Color: "#ffff00ff"},
			{Name: "Earth", X: 10, VY: 1, AX: -1, Radius: 0.01, Color: "#4da6ff"},
		},
		Trails: map[string][]bodies.Point{
			"Earth": {{X: 10, Y: -5}, {X: 10, Y: 0}},
		},
		Selected: "Earth",
		Labels:   true,
	}
}

func TestDrawBodiesAndLabels(t *testing.T) {
	f := testFrame()
	c := NewCanvas(40, 10)
	Draw(c, f, ThemeMinimal)

	// Sun sits at the centre sub-pixel (40, 20), cell (20, 5).
	if c.Grid[5][20] == blank {
		t.Error("sun not drawn")
	}
	out := c.String()
	for _, want := range []string{"Sun", "Earth", "v", "a"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q", want)
		}
	}
}

func TestDrawHeatmapAndVectors(t *testing.T) {
	f := testFrame()
	f.Labels = false
	f.Heatmap = &field.Heatmap{
		Grid:   field.Grid{XMin: -40, XMax: 40, YMin: -40, YMax: 40, Step: 40},
		Values: [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
	}
	f.Vectors = []field.Vector{{X: -10, Y: 10, GX: 1}, {X: 10, Y: 10, GY: -1}}
	f.VectorSpacing = 10

	c := NewCanvas(40, 10)
	Draw(c, f, ThemeCyberpunk)

	filled := 0
	for row := range c.bg {
		for col := range c.bg[row] {
			if c.bg[row][col] != "" {
				filled++
			}
		}
	}
	if filled == 0 {
		t.Error("heatmap painted nothing")
	}
	if c.bg[0][0] == c.bg[9][39] {
		t.Error("opposite corners should differ in intensity")
	}
}

func TestDrawDegenerateFields(t *testing.T) {
	f := testFrame()
	f.Heatmap = &field.Heatmap{}
	f.Vectors = []field.Vector{{}}
	f.Lagrange = map[string]field.Point{"L4": {X: 5, Y: 8}}

	c := NewCanvas(40, 10)
	Draw(c, f, ThemeOcean)
	if !strings.Contains(c.String(), "L4") {
		t.Error("lagrange label missing")
	}
}
